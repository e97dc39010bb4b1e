package provider

import "fmt"

// ClassConfig selects models for one task class.
type ClassConfig struct {
	Default  string `yaml:"default" json:"default"`
	Fallback string `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	// Pinned overrides default/fallback resolution entirely, for
	// reproducible runs.
	Pinned string `yaml:"pinned,omitempty" json:"pinned,omitempty"`
}

// Router resolves a task class to an ordered list of candidate models.
// Resolution is a pure function of configuration and performs no I/O.
type Router struct {
	classes map[string]ClassConfig
}

// NewRouter creates a router over the configured task classes.
func NewRouter(classes map[string]ClassConfig) *Router {
	return &Router{classes: classes}
}

// Candidates returns the models to try for a task class, in order. A
// pinned model short-circuits resolution; otherwise the default comes
// first and the fallback, if configured, second. The fallback is only
// reached after the default exhausts its own retry budget.
func (r *Router) Candidates(class string) ([]string, error) {
	cc, ok := r.classes[class]
	if !ok {
		return nil, fmt.Errorf("unknown task class %q", class)
	}
	if cc.Pinned != "" {
		return []string{cc.Pinned}, nil
	}
	if cc.Default == "" {
		return nil, fmt.Errorf("task class %q has no default model", class)
	}
	models := []string{cc.Default}
	if cc.Fallback != "" {
		models = append(models, cc.Fallback)
	}
	return models, nil
}
