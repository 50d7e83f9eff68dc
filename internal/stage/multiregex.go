package stage

import "github.com/distilkit/distil/internal/source"

func init() {
	Register("multi-regex", func() Stage { return NewMultiRegex() })
}

var multiRegexSchema = Schema{
	{Name: "patterns", Kind: KindPairs},
	{Name: "exclusive", Kind: KindBool},
	{Name: "clean", Kind: KindBool},
	{Name: "stop_token", Kind: KindString},
	{Name: "stop_on_match", Kind: KindBool},
}

// MultiRegex tries an ordered set of identifier-bound patterns on every
// scanned line and accumulates captures per identifier. In exclusive
// mode, the default, the first hit wins the line; otherwise every
// identifier/pattern combination gets its chance.
type MultiRegex struct {
	scan      scanner
	set       *patternSet
	exclusive bool
	clean     bool

	acc map[string][]string
}

// NewMultiRegex returns a MultiRegex with an empty binding, exclusive
// matching and whitespace cleaning enabled. The binding is built fresh
// per instance; nothing is shared.
func NewMultiRegex() *MultiRegex {
	set, _ := newPatternSet(nil)
	return &MultiRegex{set: set, exclusive: true, clean: true}
}

func (m *MultiRegex) Name() string { return "multi-regex" }

func (m *MultiRegex) Help() string {
	return "match an ordered set of named patterns and group captures by name"
}

func (m *MultiRegex) Options() Schema { return multiRegexSchema }

// Configure validates and applies options. All patterns compile here;
// a failure names the identifier the pattern was bound to and leaves
// the previous binding in place.
func (m *MultiRegex) Configure(raw map[string]any) error {
	vals, err := multiRegexSchema.Validate(raw)
	if err != nil {
		return err
	}
	set := m.set
	if pairs, ok := vals.GetPairs("patterns"); ok {
		set, err = newPatternSet(pairs)
		if err != nil {
			return err
		}
	}
	m.set = set
	m.exclusive = boolOr(vals, "exclusive", true)
	m.clean = boolOr(vals, "clean", true)
	m.scan = scanConfig(vals)
	return nil
}

func (m *MultiRegex) reset() { m.acc = make(map[string][]string) }

func (m *MultiRegex) normalize(line string) string {
	if m.clean {
		return whitespace.ReplaceAllString(line, "")
	}
	return line
}

// match tries identifiers in first-seen order and their patterns in
// bound order. The matched flag is line-local; exclusive mode stops the
// whole sweep at the first hit.
func (m *MultiRegex) match(_, line string) (bool, error) {
	matched := false
	for _, id := range m.set.ids {
		for _, re := range m.set.patterns[id] {
			caps := m.acc[id]
			if !appendMatches(&caps, re, line) {
				continue
			}
			m.acc[id] = caps
			matched = true
			if m.exclusive {
				return true, nil
			}
		}
	}
	return matched, nil
}

// Distill scans until a stop condition, or one line per call when no
// stop is configured. Identifiers that never matched stay absent from
// the sample.
func (m *MultiRegex) Distill(cur source.Cursor) (Sample, bool, error) {
	more, err := m.scan.run(cur, m)
	if err != nil {
		return nil, more, err
	}
	return Groups(m.acc), more, nil
}
