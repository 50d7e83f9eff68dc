package stage

import (
	"regexp"

	"github.com/distilkit/distil/internal/source"
)

func init() {
	Register("regex", func() Stage { return NewRegexRead() })
}

var regexReadSchema = Schema{
	{Name: "regex", Kind: KindString, Required: true},
	{Name: "stop_token", Kind: KindString},
	{Name: "stop_on_match", Kind: KindBool},
}

// RegexRead scans lines with a single pattern and accumulates every
// capture until a stop condition fires or the stream ends. Lines are
// stripped of all whitespace before matching, so patterns never have to
// account for indentation or alignment.
type RegexRead struct {
	scan scanner
	re   *regexp.Regexp
	acc  []string
}

// NewRegexRead returns an unconfigured RegexRead.
func NewRegexRead() *RegexRead { return &RegexRead{} }

func (r *RegexRead) Name() string { return "regex" }

func (r *RegexRead) Help() string {
	return "scan lines with a regular expression and collect every capture"
}

func (r *RegexRead) Options() Schema { return regexReadSchema }

// Configure validates and applies options. The pattern compiles here,
// so a configured stage cannot fail to compile mid-scan.
func (r *RegexRead) Configure(raw map[string]any) error {
	vals, err := regexReadSchema.Validate(raw)
	if err != nil {
		return err
	}
	expr, _ := vals.GetString("regex")
	re, err := regexp.Compile(expr)
	if err != nil {
		return &PatternError{Pattern: expr, Err: err}
	}
	r.re = re
	r.scan = scanConfig(vals)
	return nil
}

func (r *RegexRead) reset() { r.acc = []string{} }

func (r *RegexRead) normalize(line string) string {
	return whitespace.ReplaceAllString(line, "")
}

func (r *RegexRead) match(_, line string) (bool, error) {
	return appendMatches(&r.acc, r.re, line), nil
}

// Distill scans until the configured stop condition. With neither stop
// option set the scan is single-shot. Zero captures is a valid outcome,
// not an error.
func (r *RegexRead) Distill(cur source.Cursor) (Sample, bool, error) {
	if r.re == nil {
		return nil, true, &ConfigError{Reason: "stage not configured"}
	}
	more, err := r.scan.run(cur, r)
	if err != nil {
		return nil, more, err
	}
	return Captures(r.acc), more, nil
}
