// Package pipeline runs a configured stage chain over a line stream
// and collects the samples each stage produces.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/distilkit/distil/internal/source"
	"github.com/distilkit/distil/internal/stage"
)

// Options controls a run.
type Options struct {
	Recipe string // recipe name recorded in the result
	Repeat bool   // run the chain again from the top until exhaustion
}

// StageResult collects the samples one chain position produced across
// all passes. Positions are distinct even when two of them run the
// same process.
type StageResult struct {
	Name    string         `json:"name"`
	Samples []stage.Sample `json:"samples"`
}

// Result is the outcome of one run.
type Result struct {
	ID       uuid.UUID     `json:"id"`
	Recipe   string        `json:"recipe,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Passes   int           `json:"passes"`
	Stages   []StageResult `json:"stages"`
}

// Run drives the chain over the cursor. Each pass calls every stage
// once in order; with Repeat set, passes continue until the cursor is
// exhausted. Every distill call consumes at least one line, so a
// repeated run always terminates. The exhausting call's own sample is
// kept; a stage error aborts the whole run.
func Run(cur source.Cursor, stages []stage.Stage, opts Options) (*Result, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("no stages to run")
	}

	res := &Result{
		ID:      uuid.New(),
		Recipe:  opts.Recipe,
		Started: time.Now(),
		Stages:  make([]StageResult, len(stages)),
	}
	for i, st := range stages {
		res.Stages[i].Name = st.Name()
		res.Stages[i].Samples = []stage.Sample{}
	}
	defer func() { res.Duration = time.Since(res.Started) }()

	for {
		res.Passes++
		for i, st := range stages {
			sample, more, err := st.Distill(cur)
			if err != nil {
				return nil, fmt.Errorf("stage %d (%s): %w", i, st.Name(), err)
			}
			if sample != nil {
				res.Stages[i].Samples = append(res.Stages[i].Samples, sample)
			}
			if !more {
				return res, nil
			}
		}
		if !opts.Repeat {
			return res, nil
		}
	}
}
