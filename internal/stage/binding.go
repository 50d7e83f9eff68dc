package stage

import "regexp"

// patternSet is an ordered binding of identifiers to compiled patterns.
// Identifiers keep first-seen order; each identifier holds its patterns
// in the order they were bound. A set is immutable once built; Configure
// swaps the whole set.
type patternSet struct {
	ids      []string
	patterns map[string][]*regexp.Regexp
}

// newPatternSet compiles folded pairs into a patternSet. A repeated
// identifier appends to that identifier's pattern list. A pattern that
// fails to compile yields a *PatternError naming the identifier.
func newPatternSet(pairs []Pair) (*patternSet, error) {
	ps := &patternSet{patterns: make(map[string][]*regexp.Regexp)}
	for _, p := range pairs {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, &PatternError{ID: p.ID, Pattern: p.Pattern, Err: err}
		}
		if _, seen := ps.patterns[p.ID]; !seen {
			ps.ids = append(ps.ids, p.ID)
		}
		ps.patterns[p.ID] = append(ps.patterns[p.ID], re)
	}
	return ps, nil
}
