// Package monitor validates documents against JSON schemas. The service uses
// it to reject a malformed gateway configuration at startup.
package monitor

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/gateways.schema.json
var gatewaysSchema []byte

// ContractMonitor validates documents against a JSON schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewContractMonitor creates a new ContractMonitor with the given schema file path.
// The schemaPath should be an absolute path or relative to the execution directory.
func NewContractMonitor(schemaPath string) (*ContractMonitor, error) {
	return newContractMonitor(gojsonschema.NewReferenceLoader("file://"+schemaPath), schemaPath)
}

// NewGatewayConfigMonitor validates the list of gateway configurations.
func NewGatewayConfigMonitor() (*ContractMonitor, error) {
	return newContractMonitor(gojsonschema.NewBytesLoader(gatewaysSchema), "gateways.schema.json")
}

func newContractMonitor(loader gojsonschema.JSONLoader, name string) (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("error loading or compiling schema %s: %w", name, err)
	}
	return &ContractMonitor{schema: schema}, nil
}

// Validate validates the given document against the loaded JSON schema.
// It returns true if valid, or false and a list of validation errors if invalid.
func (cm *ContractMonitor) Validate(document []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
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

// ValidateValue encodes v as JSON and validates it. Invalid documents are
// reported as an error carrying every violation.
func (cm *ContractMonitor) ValidateValue(v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}
	ok, violations, err := cm.Validate(doc)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s", FormatErrors(violations))
	}
	return nil
}

// FormatErrors formats a slice of validation error strings into a single string.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}
