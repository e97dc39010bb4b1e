package provider

import (
	"reflect"
	"testing"
)

func TestRouterCandidates(t *testing.T) {
	classes := map[string]ClassConfig{
		"primary":       {Default: "model-a", Fallback: "model-b"},
		"review":        {Default: "model-c"},
		"pinned":        {Default: "model-a", Fallback: "model-b", Pinned: "model-x"},
		"misconfigured": {Fallback: "model-b"},
	}
	r := NewRouter(classes)

	tests := []struct {
		name    string
		class   string
		want    []string
		wantErr bool
	}{
		{"default then fallback", "primary", []string{"model-a", "model-b"}, false},
		{"default only", "review", []string{"model-c"}, false},
		{"pinned short-circuits", "pinned", []string{"model-x"}, false},
		{"unknown class", "deploy", nil, true},
		{"no default", "misconfigured", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Candidates(tt.class)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Candidates(%q) error = %v, wantErr %v", tt.class, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Candidates(%q) = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}
