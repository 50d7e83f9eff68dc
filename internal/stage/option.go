package stage

import (
	"fmt"
	"strings"
)

// Kind enumerates the value types a stage option can take.
type Kind int

const (
	// KindString is a plain string value.
	KindString Kind = iota

	// KindBool accepts Go bools and the common string encodings
	// (yes/no, true/false, 1/0, on/off).
	KindBool

	// KindPairs is a flattened, even-length list of identifier/pattern
	// strings: [id1, pat1, id2, pat2, ...].
	KindPairs
)

// String returns the kind name used in help output.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindPairs:
		return "pairs"
	default:
		return "unknown"
	}
}

// Option declares a single configurable key of a stage.
type Option struct {
	Name     string
	Kind     Kind
	Required bool
}

// Schema is the static, ordered option table of a stage kind. One shared
// validator operates over it; stages never hand-roll option checks.
type Schema []Option

// Pair is one identifier/pattern element of a pair-list option.
type Pair struct {
	ID      string
	Pattern string
}

// Values holds validated, coerced option values. Keys absent from the
// raw map stay absent here; defaulting for unsupplied optional keys
// happens in the stage itself, never in the validator.
type Values map[string]any

// GetString returns a string option and whether it was supplied.
func (v Values) GetString(name string) (string, bool) {
	s, ok := v[name].(string)
	return s, ok
}

// GetBool returns a bool option and whether it was supplied.
func (v Values) GetBool(name string) (bool, bool) {
	b, ok := v[name].(bool)
	return b, ok
}

// GetPairs returns a pair-list option and whether it was supplied.
func (v Values) GetPairs(name string) ([]Pair, bool) {
	p, ok := v[name].([]Pair)
	return p, ok
}

// boolOr reads a bool option, falling back to def when unsupplied.
func boolOr(vals Values, name string, def bool) bool {
	if b, ok := vals.GetBool(name); ok {
		return b
	}
	return def
}

// Validate coerces raw against the schema. It is atomic: either every
// supplied key is known, every required key present and every value
// coercible to its declared kind, or a *ConfigError comes back and no
// partial result escapes.
func (s Schema) Validate(raw map[string]any) (Values, error) {
	byName := make(map[string]Option, len(s))
	for _, opt := range s {
		byName[opt.Name] = opt
	}

	for name := range raw {
		if _, ok := byName[name]; !ok {
			return nil, &ConfigError{Option: name, Reason: "unknown option"}
		}
	}
	for _, opt := range s {
		if _, ok := raw[opt.Name]; opt.Required && !ok {
			return nil, &ConfigError{Option: opt.Name, Reason: "required option missing"}
		}
	}

	vals := make(Values, len(raw))
	for name, rv := range raw {
		cv, err := coerce(byName[name], rv)
		if err != nil {
			return nil, err
		}
		vals[name] = cv
	}
	return vals, nil
}

// Describe renders the option table as help text, one option per line.
func (s Schema) Describe() string {
	if len(s) == 0 {
		return "no options"
	}
	var b strings.Builder
	for i, opt := range s {
		if i > 0 {
			b.WriteByte('\n')
		}
		req := "optional"
		if opt.Required {
			req = "required"
		}
		fmt.Fprintf(&b, "%-14s %-7s %s", opt.Name, opt.Kind, req)
	}
	return b.String()
}

func coerce(opt Option, raw any) (any, error) {
	switch opt.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, &ConfigError{Option: opt.Name, Reason: fmt.Sprintf("want string, got %T", raw)}
		}
		return s, nil

	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, ok := parseBool(v)
			if !ok {
				return nil, &ConfigError{Option: opt.Name, Reason: fmt.Sprintf("cannot parse %q as bool", v)}
			}
			return b, nil
		default:
			return nil, &ConfigError{Option: opt.Name, Reason: fmt.Sprintf("want bool, got %T", raw)}
		}

	case KindPairs:
		return coercePairs(opt, raw)

	default:
		return nil, &ConfigError{Option: opt.Name, Reason: "unsupported option kind"}
	}
}

// parseBool accepts the spellings orchestrators commonly hand over.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "on":
		return true, true
	case "no", "false", "0", "off":
		return false, true
	}
	return false, false
}

func coercePairs(opt Option, raw any) ([]Pair, error) {
	var flat []string
	switch v := raw.(type) {
	case []string:
		flat = v
	case []any:
		flat = make([]string, len(v))
		for i, el := range v {
			s, ok := el.(string)
			if !ok {
				return nil, &ConfigError{Option: opt.Name, Reason: fmt.Sprintf("pair element %d: want string, got %T", i, el)}
			}
			flat[i] = s
		}
	default:
		return nil, &ConfigError{Option: opt.Name, Reason: fmt.Sprintf("want a flat identifier/pattern list, got %T", raw)}
	}

	if len(flat)%2 != 0 {
		return nil, &ConfigError{Option: opt.Name, Reason: fmt.Sprintf("odd pair list length %d", len(flat))}
	}

	pairs := make([]Pair, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		pairs = append(pairs, Pair{ID: flat[i], Pattern: flat[i+1]})
	}
	return pairs, nil
}
