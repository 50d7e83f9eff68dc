package stage

import (
	"regexp"
	"strings"

	"github.com/distilkit/distil/internal/source"
)

// whitespace matches any whitespace run, line terminators included.
var whitespace = regexp.MustCompile(`\s+`)

// matcher is the per-line strategy a scan runs. normalize produces the
// line the patterns see; match reports whether the line matched and
// accumulates captures internally. match receives the raw line next to
// its normalized form because boundary and sentinel detection must
// ignore normalization. reset clears the accumulator; it runs at the
// start of every call, so accumulated state is call-scoped.
type matcher interface {
	reset()
	normalize(line string) string
	match(raw, line string) (bool, error)
}

// scanner drives the line loop shared by every scanning stage. It holds
// the two stop conditions; with neither set a scan is single-shot and
// processes exactly one line per call.
type scanner struct {
	stopToken   string
	hasStop     bool
	stopOnMatch bool
}

// scanConfig reads the stop options out of validated values. An empty
// stop token counts as unset: it would otherwise occur in every line.
func scanConfig(vals Values) scanner {
	var s scanner
	tok, ok := vals.GetString("stop_token")
	s.stopToken, s.hasStop = tok, ok && tok != ""
	s.stopOnMatch = boolOr(vals, "stop_on_match", false)
	return s
}

// run executes one distill call: reset the strategy, then read lines
// until a stop condition marks the final line or the cursor runs out.
// The final line's own matches are always part of the accumulator. The
// stop token is checked against the raw line, before normalization. The
// returned bool is false when the stream ended during this call.
func (s scanner) run(cur source.Cursor, m matcher) (bool, error) {
	m.reset()
	singleShot := !s.hasStop && !s.stopOnMatch
	for {
		raw, ok := cur.Next()
		if !ok {
			return false, cur.Err()
		}

		final := singleShot
		if s.hasStop && strings.Contains(raw, s.stopToken) {
			final = true
		}

		matched, err := m.match(raw, m.normalize(raw))
		if err != nil {
			return true, err
		}
		if matched && s.stopOnMatch {
			final = true
		}

		if final {
			return true, nil
		}
	}
}

// appendMatches appends every capture of every match of re in line to
// acc and reports whether re matched at all. A pattern with groups
// contributes each group in order; one without groups contributes the
// whole match text.
func appendMatches(acc *[]string, re *regexp.Regexp, line string) bool {
	ms := re.FindAllStringSubmatch(line, -1)
	if len(ms) == 0 {
		return false
	}
	for _, m := range ms {
		if len(m) == 1 {
			*acc = append(*acc, m[0])
			continue
		}
		*acc = append(*acc, m[1:]...)
	}
	return true
}
