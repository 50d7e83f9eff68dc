package stage

import (
	"strings"
	"unicode"

	"github.com/distilkit/distil/internal/source"
)

func init() {
	Register("read-line", func() Stage { return NewReadLine() })
	Register("skip-line", func() Stage { return NewSkipLine() })
	Register("skip-until", func() Stage { return NewSkipUntil() })
}

var readLineSchema = Schema{
	{Name: "name", Kind: KindString},
	{Name: "newline_only", Kind: KindBool},
}

// ReadLine consumes one line and emits it as the sample, trimmed of
// trailing whitespace unless newline_only is set. With a name
// configured the sample becomes a single-entry field mapping, which
// keeps downstream grouping uniform.
type ReadLine struct {
	name        string
	newlineOnly bool
}

// NewReadLine returns a ReadLine with default trimming.
func NewReadLine() *ReadLine { return &ReadLine{} }

func (r *ReadLine) Name() string { return "read-line" }

func (r *ReadLine) Help() string { return "pass one line through as a sample" }

func (r *ReadLine) Options() Schema { return readLineSchema }

func (r *ReadLine) Configure(raw map[string]any) error {
	vals, err := readLineSchema.Validate(raw)
	if err != nil {
		return err
	}
	r.name, _ = vals.GetString("name")
	r.newlineOnly = boolOr(vals, "newline_only", false)
	return nil
}

// Distill reads exactly one line.
func (r *ReadLine) Distill(cur source.Cursor) (Sample, bool, error) {
	line, ok := cur.Next()
	if !ok {
		return nil, false, cur.Err()
	}
	if !r.newlineOnly {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	if r.name != "" {
		return Fields{r.name: line}, true, nil
	}
	return Text(line), true, nil
}

var skipLineSchema = Schema{}

// SkipLine consumes one line and emits nothing.
type SkipLine struct{}

// NewSkipLine returns a SkipLine.
func NewSkipLine() *SkipLine { return &SkipLine{} }

func (s *SkipLine) Name() string { return "skip-line" }

func (s *SkipLine) Help() string { return "discard one line" }

func (s *SkipLine) Options() Schema { return skipLineSchema }

// Configure accepts no options; any supplied key is unknown.
func (s *SkipLine) Configure(raw map[string]any) error {
	_, err := skipLineSchema.Validate(raw)
	return err
}

func (s *SkipLine) Distill(cur source.Cursor) (Sample, bool, error) {
	if _, ok := cur.Next(); !ok {
		return nil, false, cur.Err()
	}
	return nil, true, nil
}

var skipUntilSchema = Schema{
	{Name: "token", Kind: KindString, Required: true},
}

// SkipUntil discards lines until one contains the token. The token line
// itself is consumed; the next stage starts right after it. Running out
// of input before the token is the normal partial outcome, not an
// error.
type SkipUntil struct {
	token string
}

// NewSkipUntil returns an unconfigured SkipUntil.
func NewSkipUntil() *SkipUntil { return &SkipUntil{} }

func (s *SkipUntil) Name() string { return "skip-until" }

func (s *SkipUntil) Help() string {
	return "discard lines up to and including the first line containing a token"
}

func (s *SkipUntil) Options() Schema { return skipUntilSchema }

func (s *SkipUntil) Configure(raw map[string]any) error {
	vals, err := skipUntilSchema.Validate(raw)
	if err != nil {
		return err
	}
	tok, _ := vals.GetString("token")
	if tok == "" {
		return &ConfigError{Option: "token", Reason: "token cannot be empty"}
	}
	s.token = tok
	return nil
}

func (s *SkipUntil) Distill(cur source.Cursor) (Sample, bool, error) {
	if s.token == "" {
		return nil, true, &ConfigError{Reason: "stage not configured"}
	}
	for {
		line, ok := cur.Next()
		if !ok {
			return nil, false, cur.Err()
		}
		if strings.Contains(line, s.token) {
			return nil, true, nil
		}
	}
}
