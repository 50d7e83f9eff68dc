// Package stage implements composable text distillation processes.
//
// A stage consumes lines from a stream cursor and emits an extracted
// sample. Every stage follows the same protocol: Configure validates a
// key/value option map against the stage's static schema and applies it
// atomically, then each Distill call performs one read loop over the
// cursor and returns whatever it accumulated. Stages never see the whole
// stream, only the cursor they are handed, so a pipeline can chain them
// over a single pass of the input.
//
// Example usage:
//
//	st, err := stage.New("between-tokens")
//	if err != nil {
//	    return err
//	}
//	if err := st.Configure(map[string]any{"token1": "[", "token2": "]"}); err != nil {
//	    return err
//	}
//
//	cur := source.NewLines(f)
//	for {
//	    sample, more, err := st.Distill(cur)
//	    if err != nil {
//	        return err
//	    }
//	    // use sample
//	    if !more {
//	        break
//	    }
//	}
package stage

import "github.com/distilkit/distil/internal/source"

// Stage is the uniform protocol all distillation processes implement.
type Stage interface {
	// Name returns the registry name of the stage.
	Name() string

	// Help returns a one-line description of what the stage extracts.
	Help() string

	// Options returns the stage's option schema.
	Options() Schema

	// Configure validates raw against the option schema and applies the
	// full configuration: unsupplied optional keys revert to the stage's
	// defaults. On error the previous configuration is kept untouched.
	Configure(raw map[string]any) error

	// Distill reads lines from the cursor and returns the extracted
	// sample. The bool reports whether the stream has more input: false
	// means the cursor was exhausted during this call. The sample holds
	// everything accumulated up to that point; partial results from an
	// exhausted scan are still returned. A nil sample means the stage
	// produced nothing.
	Distill(cur source.Cursor) (Sample, bool, error)
}

// Sample is the value a stage emits from one Distill call. The concrete
// kinds are Text, Captures, Fields, Groups and Blocks.
type Sample interface {
	sample()
}

// Text is a single extracted line.
type Text string

// Captures is an ordered list of extracted fragments.
type Captures []string

// Fields maps field names to single captures.
type Fields map[string]string

// Groups maps binding identifiers to their accumulated captures.
type Groups map[string][]string

// Blocks maps binding identifiers to per-block capture runs.
type Blocks map[string][]Span

// Span is one contiguous capture run inside a block.
type Span struct {
	Block    int      `json:"block"`
	Captures []string `json:"captures"`
}

func (Text) sample()     {}
func (Captures) sample() {}
func (Fields) sample()   {}
func (Groups) sample()   {}
func (Blocks) sample()   {}
