package httpapi

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// settleRequestSchema rejects structurally malformed bodies before any
// field parsing happens. Value formats (hex, decimal) are checked during
// conversion; the schema only pins shape and presence.
const settleRequestSchema = `{
	"type": "object",
	"required": ["permit", "amount", "owner", "witness", "signature"],
	"properties": {
		"permit": {
			"type": "object",
			"required": ["permitted", "nonce", "deadline"],
			"properties": {
				"permitted": {
					"type": "object",
					"required": ["token", "amount"],
					"properties": {
						"token": {"type": "string"},
						"amount": {"type": "string"}
					}
				},
				"nonce": {"type": "string"},
				"deadline": {"type": "string"}
			}
		},
		"amount": {"type": "string"},
		"owner": {"type": "string"},
		"witness": {
			"type": "object",
			"required": ["to", "validAfter", "validBefore"],
			"properties": {
				"extra": {"type": "string"},
				"to": {"type": "string"},
				"validAfter": {"type": "string"},
				"validBefore": {"type": "string"}
			}
		},
		"signature": {"type": "string"},
		"selfPermit": {
			"type": "object",
			"required": ["value", "deadline", "signature"],
			"properties": {
				"value": {"type": "string"},
				"deadline": {"type": "string"},
				"signature": {"type": "string"}
			}
		}
	}
}`

var settleSchema = gojsonschema.NewStringLoader(settleRequestSchema)

// validateSettleBody runs the request body through the JSON schema.
func validateSettleBody(body []byte) error {
	result, err := gojsonschema.Validate(settleSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
	}
	return nil
}
