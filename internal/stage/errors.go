package stage

import "fmt"

// ConfigError reports an invalid or unknown stage option. A Configure
// call that returns one leaves the stage's previous configuration in
// place.
type ConfigError struct {
	Option string // offending option name, empty for map-level faults
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Option == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: option %q: %s", e.Option, e.Reason)
}

// PatternError reports a pattern string that failed to compile. All
// patterns compile during Configure, so a configured stage can never
// hit a compile failure mid-scan.
type PatternError struct {
	ID      string // binding identifier, empty for single-pattern stages
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("pattern %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("pattern %q bound to %q: %v", e.Pattern, e.ID, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// AlignmentError reports a field-name inference mismatch: the line
// yielded a different number of candidate names than captures. The
// distill call fails and no partial field mapping is emitted.
type AlignmentError struct {
	Names    int
	Captures int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("field alignment: %d names for %d captures", e.Names, e.Captures)
}
