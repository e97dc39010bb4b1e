// Command schema-generator emits JSON schemas for conveyor's persisted
// files so editors and operational tooling can validate them.
package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/conveyordev/conveyor/pkg/pipeline"
	"github.com/invopop/jsonschema"
)

func main() {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	write(r, &pipeline.State{}, "Conveyor Pipeline State",
		"Schema for a project's state.yml.", "state.schema.json")
	write(r, &pipeline.Config{}, "Conveyor Configuration",
		"Schema for a project's conveyor.yml.", "conveyor.schema.json")
}

func write(r *jsonschema.Reflector, v interface{}, title, description, path string) {
	schema := r.Reflect(v)
	schema.Title = title
	schema.Description = description
	schema.Required = nil

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Printf("Successfully generated %s", path)
}
