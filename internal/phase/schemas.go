package phase

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

// Schemas describe the JSON shape each adapter call is instructed to
// return. A raw response failing either JSON syntax or schema validation is
// treated identically (SPEC_FULL §4.6.1): the phase falls back to its
// sentinel record rather than failing outright.
const scanSchema = `{
	"type": "object",
	"properties": {
		"findings": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string"},
					"detail": {"type": "string"},
					"relevance": {"type": "number"},
					"truthStatus": {"type": "string"},
					"confidence": {"type": "string"},
					"sources": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["title"]
			}
		}
	},
	"required": ["findings"]
}`

const planSchema = `{
	"type": "object",
	"properties": {
		"strategy": {
			"type": "object",
			"properties": {
				"summary": {"type": "string"},
				"priorities": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"objectiveId": {"type": "string"},
							"rationale": {"type": "string"},
							"proposedTasks": {
								"type": "array",
								"items": {
									"type": "object",
									"properties": {
										"title": {"type": "string"},
										"description": {"type": "string"},
										"estimatedComplexity": {"type": "string"},
										"suggestedTier": {"type": "integer"}
									},
									"required": ["title"]
								}
							}
						}
					}
				}
			},
			"required": ["summary", "priorities"]
		}
	},
	"required": ["strategy"]
}`

const evalSchema = `{
	"type": "object",
	"properties": {
		"metrics": {"type": "object"},
		"insights": {"type": "array", "items": {"type": "string"}},
		"recommendations": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"text": {"type": "string"},
					"priority": {"type": "string"}
				},
				"required": ["text"]
			}
		}
	},
	"required": ["metrics", "insights", "recommendations"]
}`

// validateJSON parses raw against the given schema, returning the decoded
// document on success. On any syntax or schema violation it returns
// ok=false; callers fall back to a sentinel record.
func validateJSON(schema, raw string) (map[string]interface{}, bool) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false
	}

	schemaLoader := gojsonschema.NewStringLoader(schema)
	docLoader := gojsonschema.NewGoLoader(doc)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil || !result.Valid() {
		return nil, false
	}
	return doc, true
}
