package stage

import (
	"regexp"
	"strings"

	"github.com/distilkit/distil/internal/source"
)

func init() {
	Register("between-tokens", func() Stage { return NewBetweenTokens() })
}

var betweenTokensSchema = Schema{
	{Name: "token1", Kind: KindString, Required: true},
	{Name: "token2", Kind: KindString},
	{Name: "names", Kind: KindBool},
}

// BetweenTokens extracts the text between a pair of delimiter tokens on
// a single line. When token2 is not supplied the opening token closes
// the span too. With name inference on, whatever survives outside the
// matched spans becomes the field names for the captures, paired by
// position.
type BetweenTokens struct {
	re    *regexp.Regexp
	names bool

	acc    []string
	fields Fields
}

// NewBetweenTokens returns an unconfigured BetweenTokens.
func NewBetweenTokens() *BetweenTokens { return &BetweenTokens{} }

func (b *BetweenTokens) Name() string { return "between-tokens" }

func (b *BetweenTokens) Help() string {
	return "extract the text between a pair of delimiter tokens on one line"
}

func (b *BetweenTokens) Options() Schema { return betweenTokensSchema }

// Configure validates and applies options, synthesizing the non-greedy
// between-tokens pattern. Tokens are quoted, so any literal delimiter
// works, regex metacharacters included.
func (b *BetweenTokens) Configure(raw map[string]any) error {
	vals, err := betweenTokensSchema.Validate(raw)
	if err != nil {
		return err
	}
	tok1, _ := vals.GetString("token1")
	if tok1 == "" {
		return &ConfigError{Option: "token1", Reason: "token cannot be empty"}
	}
	tok2, ok := vals.GetString("token2")
	if !ok || tok2 == "" {
		tok2 = tok1
	}

	// Quoted tokens cannot produce an invalid expression.
	b.re = regexp.MustCompile(regexp.QuoteMeta(tok1) + "(.*?)" + regexp.QuoteMeta(tok2))
	b.names = boolOr(vals, "names", false)
	return nil
}

func (b *BetweenTokens) reset() {
	b.acc = []string{}
	b.fields = Fields{}
}

func (b *BetweenTokens) normalize(line string) string {
	return whitespace.ReplaceAllString(line, "")
}

func (b *BetweenTokens) match(_, line string) (bool, error) {
	matched := appendMatches(&b.acc, b.re, line)
	if !matched || !b.names {
		return matched, nil
	}

	// Candidate names are whatever survives outside the matched spans,
	// split on the spaces the spans collapse into.
	rest := b.re.ReplaceAllString(line, " ")
	names := strings.Fields(rest)
	if len(names) != len(b.acc) {
		return true, &AlignmentError{Names: len(names), Captures: len(b.acc)}
	}
	for i, name := range names {
		b.fields[strings.TrimRight(name, ":=,")] = b.acc[i]
	}
	return true, nil
}

// Distill consumes exactly one line. Without names the sample is the
// ordered captures; with names it is the inferred field mapping. A
// name/capture count mismatch fails the call with *AlignmentError.
func (b *BetweenTokens) Distill(cur source.Cursor) (Sample, bool, error) {
	if b.re == nil {
		return nil, true, &ConfigError{Reason: "stage not configured"}
	}
	var scan scanner // no stop conditions: single-shot
	more, err := scan.run(cur, b)
	if err != nil {
		return nil, more, err
	}
	if b.names {
		return b.fields, more, nil
	}
	return Captures(b.acc), more, nil
}
