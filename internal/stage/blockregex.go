package stage

import (
	"strings"

	"github.com/distilkit/distil/internal/source"
)

func init() {
	Register("block-regex", func() Stage { return NewBlockRegex() })
}

var blockRegexSchema = Schema{
	{Name: "block_token", Kind: KindString, Required: true},
	{Name: "patterns", Kind: KindPairs},
	{Name: "clean", Kind: KindBool},
	{Name: "stop_token", Kind: KindString},
	{Name: "stop_on_match", Kind: KindBool},
}

// BlockRegex segments the scanned region into blocks delimited by a
// boundary token and groups captures by the block they occurred in.
// Matching is always exclusive: the first identifier/pattern hit wins
// the line.
type BlockRegex struct {
	scan  scanner
	set   *patternSet
	token string
	clean bool

	block int
	acc   map[string][]Span
}

// NewBlockRegex returns a BlockRegex with an empty binding and
// whitespace cleaning enabled.
func NewBlockRegex() *BlockRegex {
	set, _ := newPatternSet(nil)
	return &BlockRegex{set: set, clean: true}
}

func (b *BlockRegex) Name() string { return "block-regex" }

func (b *BlockRegex) Help() string {
	return "group pattern captures into blocks delimited by a boundary token"
}

func (b *BlockRegex) Options() Schema { return blockRegexSchema }

func (b *BlockRegex) Configure(raw map[string]any) error {
	vals, err := blockRegexSchema.Validate(raw)
	if err != nil {
		return err
	}
	tok, _ := vals.GetString("block_token")
	if tok == "" {
		return &ConfigError{Option: "block_token", Reason: "token cannot be empty"}
	}
	set := b.set
	if pairs, ok := vals.GetPairs("patterns"); ok {
		set, err = newPatternSet(pairs)
		if err != nil {
			return err
		}
	}
	b.set = set
	b.token = tok
	b.clean = boolOr(vals, "clean", true)
	b.scan = scanConfig(vals)
	return nil
}

func (b *BlockRegex) reset() {
	b.block = 0
	b.acc = make(map[string][]Span)
}

func (b *BlockRegex) normalize(line string) string {
	if b.clean {
		return whitespace.ReplaceAllString(line, "")
	}
	return line
}

// match counts boundaries before any pattern attempt, whether or not a
// pattern goes on to match. The boundary check runs on the raw line:
// boundary tokens may contain whitespace that normalization destroys.
func (b *BlockRegex) match(raw, line string) (bool, error) {
	if strings.Contains(raw, b.token) {
		b.block++
	}
	for _, id := range b.set.ids {
		for _, re := range b.set.patterns[id] {
			var caps []string
			if !appendMatches(&caps, re, line) {
				continue
			}
			b.add(id, caps)
			return true, nil
		}
	}
	return false, nil
}

// add extends the current block's run for id, or opens a new one.
func (b *BlockRegex) add(id string, caps []string) {
	spans := b.acc[id]
	if n := len(spans); n > 0 && spans[n-1].Block == b.block {
		spans[n-1].Captures = append(spans[n-1].Captures, caps...)
	} else {
		spans = append(spans, Span{Block: b.block, Captures: caps})
	}
	b.acc[id] = spans
}

// Distill scans until a stop condition, or one line per call when no
// stop is configured. The block counter is call-scoped and starts at
// zero, so captures before the first boundary land in block zero.
func (b *BlockRegex) Distill(cur source.Cursor) (Sample, bool, error) {
	if b.token == "" {
		return nil, true, &ConfigError{Reason: "stage not configured"}
	}
	more, err := b.scan.run(cur, b)
	if err != nil {
		return nil, more, err
	}
	return Blocks(b.acc), more, nil
}
