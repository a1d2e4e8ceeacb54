// Package monitor validates raw gateway payloads against the wire contract
// before they reach the response decoder. A contract violation is reported
// with the full list of schema errors so the offending field is named in
// diagnostics.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// defaultSchema is the baseline contract for an initiation response: a JSON
// object carrying a string discriminator. It deliberately stays loose about
// variant fields so the decoder, not the schema, owns per-variant semantics.
const defaultSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "InitiationResponse",
	"type": "object",
	"properties": {
		"type": { "type": "string" },
		"url": { "type": "string" },
		"responseDetails": { "type": "array" },
		"redirectData": { "type": "object" },
		"paymentMethodReturnData": { "type": "string" },
		"errorCode": { "type": "string" },
		"errorMessage": { "type": "string" }
	},
	"required": ["type"]
}`

// ContractMonitor validates incoming payloads against a JSON schema.
type ContractMonitor struct {
	schemaLoader gojsonschema.JSONLoader
}

// NewContractMonitor creates a ContractMonitor with the given schema file
// path. The schemaPath should be an absolute path or relative to the
// execution directory.
func NewContractMonitor(schemaPath string) (*ContractMonitor, error) {
	schemaLoader := gojsonschema.NewReferenceLoader("file://" + schemaPath)
	if _, err := gojsonschema.NewSchema(schemaLoader); err != nil {
		return nil, fmt.Errorf("error loading or compiling schema %s: %w", schemaPath, err)
	}
	return &ContractMonitor{schemaLoader: schemaLoader}, nil
}

// NewDefaultContractMonitor creates a ContractMonitor with the built-in
// initiation-response schema.
func NewDefaultContractMonitor() *ContractMonitor {
	return &ContractMonitor{schemaLoader: gojsonschema.NewStringLoader(defaultSchema)}
}

// Validate validates the given payload against the loaded JSON schema.
// It returns true if valid, or false and a list of violations if invalid.
func (cm *ContractMonitor) Validate(payload []byte) (bool, []string, error) {
	documentLoader := gojsonschema.NewBytesLoader(payload)
	result, err := gojsonschema.Validate(cm.schemaLoader, documentLoader)
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}

	if result.Valid() {
		return true, nil, nil
	}

	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return false, violations, nil
}

// FormatErrors formats a slice of violation strings into a single string.
func FormatErrors(violations []string) string {
	if len(violations) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(violations, "; ")
}
