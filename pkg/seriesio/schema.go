package seriesio

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed chart.schema.json
var chartSchema []byte

// SchemaError lists the schema violations of a chart document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSchemaMismatch, strings.Join(e.Violations, "; "))
}

// Unwrap lets errors.Is match ErrSchemaMismatch.
func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

// Schema returns the embedded JSON schema for chart documents.
func Schema() []byte {
	return chartSchema
}

// ValidateJSON checks a JSON chart document against the embedded schema.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(chartSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return &SchemaError{Violations: violations}
}
