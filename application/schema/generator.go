// Package schema provides JSON schema generation for plugin manifests and
// tool configuration.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/reglet-dev/dome-sdk/domain/entities"
)

// ManifestSchemaID is the $id of the manifest schema.
const ManifestSchemaID = "https://github.com/reglet-dev/dome-sdk/manifest.schema.json"

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
	return marshal(reflector.Reflect(v))
}

// ManifestSchema returns the JSON schema of entities.Manifest.
func ManifestSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	s := reflector.Reflect(&entities.Manifest{})
	s.ID = ManifestSchemaID
	s.Title = "DOME plugin manifest"
	return marshal(s)
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}
