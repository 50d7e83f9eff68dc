// Package recipe loads distillation recipes and builds their stage
// chains. A recipe file names an ordered list of processes, each with
// the options to configure it; YAML, JSON and TOML files all work.
package recipe

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/distilkit/distil/internal/stage"
)

// StageSpec is one stage entry of a recipe: which process to run and
// the options to configure it with.
type StageSpec struct {
	Process string         `mapstructure:"process"`
	Options map[string]any `mapstructure:"options"`
}

// Recipe is a named, ordered chain of stage specifications. With
// Repeat set the chain runs again from the top until the source is
// exhausted.
type Recipe struct {
	Name   string      `mapstructure:"name"`
	Repeat bool        `mapstructure:"repeat"`
	Stages []StageSpec `mapstructure:"stages"`
}

// Load reads and validates a recipe file. A recipe without an explicit
// name takes the file's base name.
func Load(path string) (*Recipe, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}

	var r Recipe
	if err := v.Unmarshal(&r); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	if r.Name == "" {
		r.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the structural rules a recipe must satisfy before
// its stages are built.
func (r *Recipe) Validate() error {
	if len(r.Stages) == 0 {
		return fmt.Errorf("recipe %q has no stages", r.Name)
	}
	for i, s := range r.Stages {
		if strings.TrimSpace(s.Process) == "" {
			return fmt.Errorf("recipe %q: stage %d names no process", r.Name, i)
		}
	}
	return nil
}

// Build instantiates and configures every stage of the recipe in order.
// Configuration failures carry the stage's position and process name.
func (r *Recipe) Build() ([]stage.Stage, error) {
	stages := make([]stage.Stage, 0, len(r.Stages))
	for i, spec := range r.Stages {
		st, err := stage.New(spec.Process)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		if err := st.Configure(spec.Options); err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, spec.Process, err)
		}
		stages = append(stages, st)
	}
	return stages, nil
}
