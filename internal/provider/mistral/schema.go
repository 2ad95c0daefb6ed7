package mistral

// BuildCleanupJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It constrains the cleanup response to exactly n page strings,
// which is how order and arity of a batch are enforced.
func BuildCleanupJSONSchema(n int) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"pages": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": n,
				"maxItems": n,
			},
		},
		"required": []string{"pages"},
	}
}
