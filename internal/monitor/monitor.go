// Package monitor validates inbound checkout payloads against a JSON schema
// before they are bound into domain types. Schema violations are a parse-error
// class, distinct from a cart that parses but fails business validation.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// cartPayloadSchema is the wire contract for POST /pay/{userId} bodies.
const cartPayloadSchema = `{
	"$schema": "http://json-schema.org/draft-04/schema#",
	"type": "object",
	"required": ["items", "total"],
	"properties": {
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["sku", "qty"],
				"properties": {
					"sku": {"type": "string"},
					"qty": {"type": "integer", "minimum": 0}
				}
			}
		},
		"total": {"type": "number"}
	}
}`

// ContractMonitor validates raw request bodies against the cart payload schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewCartPayloadMonitor compiles the embedded cart payload schema.
func NewCartPayloadMonitor() (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(cartPayloadSchema))
	if err != nil {
		return nil, fmt.Errorf("monitor: error compiling cart payload schema: %w", err)
	}
	return &ContractMonitor{schema: schema}, nil
}

// Validate checks the given request body against the cart payload schema.
// It returns true if valid, or false and a list of validation errors.
func (cm *ContractMonitor) Validate(requestBody []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(requestBody))
	if err != nil {
		return false, nil, fmt.Errorf("monitor: error during validation: %w", err)
	}

	if result.Valid() {
		return true, nil, nil
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return false, errors, nil
}

// FormatErrors formats a slice of validation error strings into a single string.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}
