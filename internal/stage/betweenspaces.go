package stage

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/distilkit/distil/internal/source"
)

func init() {
	Register("between-spaces", func() Stage { return NewBetweenSpaces() })
}

var betweenSpacesSchema = Schema{
	{Name: "collapse", Kind: KindBool},
}

// spaceRun captures everything up to the next whitespace character.
var spaceRun = regexp.MustCompile(`(.*?)\s`)

// BetweenSpaces splits one line into the fragments separated by
// whitespace. Collapsing, on unless disabled, folds every whitespace
// run into a single space first. Field-name inference has no meaning
// here: the delimiters carry no names.
type BetweenSpaces struct {
	collapse bool
	acc      []string
}

// NewBetweenSpaces returns a BetweenSpaces with collapsing enabled.
func NewBetweenSpaces() *BetweenSpaces { return &BetweenSpaces{collapse: true} }

func (b *BetweenSpaces) Name() string { return "between-spaces" }

func (b *BetweenSpaces) Help() string {
	return "extract the whitespace-separated fragments of one line"
}

func (b *BetweenSpaces) Options() Schema { return betweenSpacesSchema }

func (b *BetweenSpaces) Configure(raw map[string]any) error {
	vals, err := betweenSpacesSchema.Validate(raw)
	if err != nil {
		return err
	}
	b.collapse = boolOr(vals, "collapse", true)
	return nil
}

func (b *BetweenSpaces) reset() { b.acc = []string{} }

// normalize trims trailing whitespace and appends a single sentinel
// space so the final fragment is still delimiter-bounded.
func (b *BetweenSpaces) normalize(line string) string {
	if b.collapse {
		line = whitespace.ReplaceAllString(line, " ")
	}
	return strings.TrimRightFunc(line, unicode.IsSpace) + " "
}

func (b *BetweenSpaces) match(_, line string) (bool, error) {
	return appendMatches(&b.acc, spaceRun, line), nil
}

// Distill consumes exactly one line.
func (b *BetweenSpaces) Distill(cur source.Cursor) (Sample, bool, error) {
	var scan scanner // no stop conditions: single-shot
	more, err := scan.run(cur, b)
	if err != nil {
		return nil, more, err
	}
	return Captures(b.acc), more, nil
}
