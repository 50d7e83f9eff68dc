package stage

import (
	"errors"
	"testing"
)

func newBetweenTokens(t *testing.T, opts map[string]any) *BetweenTokens {
	t.Helper()
	b := NewBetweenTokens()
	if err := b.Configure(opts); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	return b
}

func TestBetweenTokensCaptures(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
		line string
		want []string
	}{
		{
			name: "bracket pair",
			opts: map[string]any{"token1": "[", "token2": "]"},
			line: "[x] [y]",
			want: []string{"x", "y"},
		},
		{
			name: "token2 defaults to token1",
			opts: map[string]any{"token1": "|"},
			line: "|a| |b|",
			want: []string{"a", "b"},
		},
		{
			name: "metacharacter tokens are literal",
			opts: map[string]any{"token1": "(", "token2": ")"},
			line: "f(x) g(y)",
			want: []string{"x", "y"},
		},
		{
			name: "empty token2 defaults to token1",
			opts: map[string]any{"token1": "#", "token2": ""},
			line: "#a# #b#",
			want: []string{"a", "b"},
		},
		{
			name: "non-greedy spans",
			opts: map[string]any{"token1": "<", "token2": ">"},
			line: "<a> junk <b>",
			want: []string{"a", "b"},
		},
		{
			name: "no delimiters on line",
			opts: map[string]any{"token1": "[", "token2": "]"},
			line: "plain text",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBetweenTokens(t, tt.opts)
			sample, more, err := b.Distill(cursor(tt.line))
			if err != nil {
				t.Fatalf("Distill() error = %v", err)
			}
			if !more {
				t.Error("single line not yet exhausted after one call")
			}
			equalStrings(t, captures(t, sample), tt.want)
		})
	}
}

func TestBetweenTokensNames(t *testing.T) {
	b := newBetweenTokens(t, map[string]any{"token1": "[", "token2": "]", "names": true})

	sample, _, err := b.Distill(cursor("name1: [x] name2: [y]"))
	if err != nil {
		t.Fatalf("Distill() error = %v", err)
	}

	got := fields(t, sample)
	want := map[string]string{"name1": "x", "name2": "y"}
	if len(got) != len(want) {
		t.Fatalf("got %d fields %v, want %d", len(got), got, len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %q = %q, want %q", k, got[k], v)
		}
	}
}

func TestBetweenTokensNameDecoration(t *testing.T) {
	// Trailing separator punctuation on a candidate name is dropped.
	tests := []struct {
		name string
		line string
		key  string
	}{
		{name: "colon", line: "cpu: [90]", key: "cpu"},
		{name: "equals", line: "cpu= [90]", key: "cpu"},
		{name: "comma", line: "cpu, [90]", key: "cpu"},
		{name: "bare", line: "cpu [90]", key: "cpu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBetweenTokens(t, map[string]any{"token1": "[", "token2": "]", "names": true})
			sample, _, err := b.Distill(cursor(tt.line))
			if err != nil {
				t.Fatalf("Distill() error = %v", err)
			}
			got := fields(t, sample)
			if got[tt.key] != "90" {
				t.Errorf("fields = %v, want %q -> %q", got, tt.key, "90")
			}
		})
	}
}

func TestBetweenTokensAlignmentError(t *testing.T) {
	b := newBetweenTokens(t, map[string]any{"token1": "[", "token2": "]", "names": true})

	sample, more, err := b.Distill(cursor("lonely [a] [b]"))
	if err == nil {
		t.Fatal("expected alignment error")
	}
	var ae *AlignmentError
	if !errors.As(err, &ae) {
		t.Fatalf("error is %T, want *AlignmentError", err)
	}
	if ae.Names != 1 || ae.Captures != 2 {
		t.Errorf("alignment = %d names, %d captures, want 1 and 2", ae.Names, ae.Captures)
	}
	if sample != nil {
		t.Errorf("partial sample escaped a failed call: %v", sample)
	}
	if !more {
		t.Error("alignment failure misreported the stream as exhausted")
	}
}

func TestBetweenTokensAlignmentConsumesLine(t *testing.T) {
	b := newBetweenTokens(t, map[string]any{"token1": "[", "token2": "]", "names": true})
	cur := cursor("bad [a] [b]", "next")

	if _, _, err := b.Distill(cur); err == nil {
		t.Fatal("expected alignment error")
	}

	// The offending line was consumed; the cursor moved past it.
	if line, ok := cur.Next(); !ok || line != "next" {
		t.Errorf("next line = (%q, %v), want (%q, true)", line, ok, "next")
	}
}

func TestBetweenTokensEmptyToken(t *testing.T) {
	b := NewBetweenTokens()
	err := b.Configure(map[string]any{"token1": ""})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error is %T, want *ConfigError", err)
	}
	if ce.Option != "token1" {
		t.Errorf("ConfigError.Option = %q, want %q", ce.Option, "token1")
	}
}

func TestBetweenTokensExhaustedStream(t *testing.T) {
	b := newBetweenTokens(t, map[string]any{"token1": "["})

	sample, more, err := b.Distill(cursor())
	if err != nil {
		t.Fatalf("Distill() error = %v", err)
	}
	if more {
		t.Error("empty stream reported more input")
	}
	equalStrings(t, captures(t, sample), []string{})
}

func TestBetweenTokensUnconfigured(t *testing.T) {
	b := NewBetweenTokens()
	_, _, err := b.Distill(cursor("line"))
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error is %T, want *ConfigError", err)
	}
}
