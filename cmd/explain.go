package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/distilkit/distil/internal/llm"
	"github.com/distilkit/distil/internal/output"
	"github.com/distilkit/distil/internal/pipeline"
	"github.com/distilkit/distil/internal/recipe"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var explainCmd = &cobra.Command{
	Use:   "explain <question> --recipe <recipe> --file <file>",
	Short: "Ask questions about distilled samples using AI",
	Long: `Distill the input with a recipe, then send the samples along with a
natural language question to an LLM and stream back the answer.

The model only ever sees the distilled samples, not the raw stream, so
a recipe that captures the interesting values doubles as a token-tight
summary for the question.

Examples:
  distil explain "what is the highest temperature?" --recipe sensors.yaml --file sensors.log
  distil explain "which block failed?" --recipe boot.yaml --file boot.log --file boot.2.log
  distil explain "summarize the transfer rates" --recipe net.yaml --file net.log --model qwen2.5:7b`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().String("recipe", "", "recipe to distill the input with (required)")
	explainCmd.Flags().StringSliceP("file", "F", []string{}, "file(s) to distill (required, repeatable)")
	explainCmd.Flags().String("model", "", "override the configured model")

	_ = explainCmd.MarkFlagRequired("recipe")
	_ = explainCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	question := args[0]
	recipePath, _ := cmd.Flags().GetString("recipe")
	files, _ := cmd.Flags().GetStringSlice("file")
	modelOverride, _ := cmd.Flags().GetString("model")

	format := output.ParseFormat(viper.GetString("format"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := recipe.Load(recipePath)
	if err != nil {
		return err
	}
	stages, err := rec.Build()
	if err != nil {
		return err
	}

	cur, cleanup, err := openSource(files)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := pipeline.Run(cur, stages, pipeline.Options{Recipe: rec.Name, Repeat: rec.Repeat})
	if err != nil {
		return err
	}

	sampleCount := 0
	for _, sr := range res.Stages {
		sampleCount += len(sr.Samples)
	}
	if sampleCount == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "The recipe produced no samples. Nothing to explain.")
		return nil
	}

	// Render the run the way the text format would; that rendering is
	// the model's whole view of the data.
	var rendered bytes.Buffer
	renderer := output.New(&rendered, output.FormatText)
	renderer.SetColor(output.ColorNever)
	if err := renderer.WriteResult(res); err != nil {
		return err
	}

	var llmCfg llm.Config
	if err := viper.UnmarshalKey("llm", &llmCfg); err != nil {
		return fmt.Errorf("failed to unmarshal llm config: %w", err)
	}

	client, err := llm.New(llmCfg, newLogger())
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w\n\nTroubleshooting:\n- Ensure Ollama is running: ollama serve\n- Check the llm section in ~/.distil.yaml", err)
	}

	if err := client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("cannot connect to Ollama at %s: %w\n\nStart Ollama with: ollama serve", llmCfg.Host, err)
	}

	model := client.Model()
	if modelOverride != "" {
		model = modelOverride
	}

	available, err := client.ModelAvailable(ctx, model)
	if err != nil {
		return err
	}
	if !available {
		return fmt.Errorf("model %q is not available\n\nPull it with: ollama pull %s", model, model)
	}

	messages := []llm.Message{
		{Role: "system", Content: buildExplainSystemPrompt()},
		{Role: "user", Content: buildExplainUserPrompt(question, rec.Name, rendered.String())},
	}

	stream, err := client.ChatStream(ctx, messages, &llm.ChatOptions{
		Model:       model,
		Temperature: llmCfg.Temperature,
		MaxTokens:   llmCfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to start LLM stream: %w", err)
	}

	if format == output.FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), "=== Answer ===")
		fmt.Fprintln(cmd.OutOrStdout())
	}

	var fullResponse strings.Builder
	for event := range stream {
		if event.Error != nil {
			if fullResponse.Len() > 0 {
				fmt.Fprintf(os.Stderr, "\n\nError during streaming: %v\n", event.Error)
			}
			return event.Error
		}

		if event.Content != "" {
			if format == output.FormatText {
				fmt.Fprint(cmd.OutOrStdout(), event.Content)
			}
			fullResponse.WriteString(event.Content)
		}
	}

	if format == output.FormatText {
		fmt.Fprintln(cmd.OutOrStdout())
	}

	if format == output.FormatJSON {
		explainResult := map[string]interface{}{
			"question": question,
			"recipe":   rec.Name,
			"files":    files,
			"run_id":   res.ID.String(),
			"passes":   res.Passes,
			"samples":  sampleCount,
			"answer":   fullResponse.String(),
			"metadata": map[string]interface{}{
				"model": model,
			},
		}

		writer := output.New(cmd.OutOrStdout(), output.FormatJSON)
		if err := writer.WriteJSON(explainResult); err != nil {
			return fmt.Errorf("failed to write JSON output: %w", err)
		}
	}

	return nil
}
