package stage

import (
	"strings"
	"testing"

	"github.com/distilkit/distil/internal/source"
)

// Compile-time interface checks for every registered stage kind.
var (
	_ Stage = (*RegexRead)(nil)
	_ Stage = (*BetweenTokens)(nil)
	_ Stage = (*BetweenSpaces)(nil)
	_ Stage = (*MultiRegex)(nil)
	_ Stage = (*BlockRegex)(nil)
	_ Stage = (*ReadLine)(nil)
	_ Stage = (*SkipLine)(nil)
	_ Stage = (*SkipUntil)(nil)
)

// cursor builds a line cursor over the given lines.
func cursor(lines ...string) source.Cursor {
	if len(lines) == 0 {
		return source.NewLines(strings.NewReader(""))
	}
	return source.NewLines(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func equalStrings(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d values %q, want %d values %q", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("value %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// captures unwraps a Captures sample or fails the test.
func captures(t *testing.T, s Sample) []string {
	t.Helper()
	c, ok := s.(Captures)
	if !ok {
		t.Fatalf("sample is %T, want Captures", s)
	}
	return c
}

// fields unwraps a Fields sample or fails the test.
func fields(t *testing.T, s Sample) map[string]string {
	t.Helper()
	f, ok := s.(Fields)
	if !ok {
		t.Fatalf("sample is %T, want Fields", s)
	}
	return f
}

// groups unwraps a Groups sample or fails the test.
func groups(t *testing.T, s Sample) map[string][]string {
	t.Helper()
	g, ok := s.(Groups)
	if !ok {
		t.Fatalf("sample is %T, want Groups", s)
	}
	return g
}

// blocks unwraps a Blocks sample or fails the test.
func blocks(t *testing.T, s Sample) map[string][]Span {
	t.Helper()
	b, ok := s.(Blocks)
	if !ok {
		t.Fatalf("sample is %T, want Blocks", s)
	}
	return b
}
