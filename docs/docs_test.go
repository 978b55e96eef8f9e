package docs

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoc_ReferencesResolve(t *testing.T) {
	var doc struct {
		Paths       map[string]map[string]map[string]any `json:"paths"`
		Definitions map[string]any                       `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	var walk func(v any)
	walk = func(v any) {
		switch v := v.(type) {
		case map[string]any:
			if ref, ok := v["$ref"].(string); ok {
				name := strings.TrimPrefix(ref, "#/definitions/")
				require.Contains(t, doc.Definitions, name, "dangling $ref %s", ref)
			}
			for _, child := range v {
				walk(child)
			}
		case []any:
			for _, child := range v {
				walk(child)
			}
		}
	}

	for path, methods := range doc.Paths {
		for method, op := range methods {
			walk(op)

			responses, _ := op["responses"].(map[string]any)
			require.NotEmpty(t, responses, "%s %s", method, path)
			for code, r := range responses {
				if code[0] == '2' {
					continue
				}
				schema, _ := r.(map[string]any)["schema"].(map[string]any)
				require.Equal(t, "#/definitions/api.ErrorResponse", schema["$ref"], "%s %s %s", method, path, code)
			}
		}
	}
}
