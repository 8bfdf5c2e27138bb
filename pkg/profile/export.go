package profile

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from the
// Go Profile struct using invopop/jsonschema.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Profile{})
	s.ID = "https://github.com/ormasoftchile/toollint/schemas/profile-v0.json"
	s.Title = "Toollint Profile v0"
	s.Description = "Schema for toollint profile YAML documents (.toollint.yaml)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
