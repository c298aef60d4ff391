// internal/common/validation/schema.go
package validation

import "fmt"

// FieldType is the expected JSON type of a payload field.
type FieldType string

const (
	TypeString      FieldType = "string"
	TypeNumber      FieldType = "number"
	TypeStringArray FieldType = "string_array"
)

// Schema describes the known fields of an event payload. Fields not listed
// are ignored; payloads are producer-owned and may carry extra data.
type Schema struct {
	Fields   map[string]FieldType
	Required []string
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validate checks a payload against a schema. Wrongly typed fields and
// missing required fields are reported; unknown fields pass through.
func Validate(payload map[string]interface{}, schema Schema) *ValidationResult {
	var errs []ValidationError

	for _, field := range schema.Required {
		if _, ok := payload[field]; !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "required field missing",
			})
		}
	}

	for field, ft := range schema.Fields {
		value, ok := payload[field]
		if !ok || value == nil {
			continue
		}
		if err := checkType(value, ft); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
			})
		}
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func checkType(value interface{}, ft FieldType) error {
	switch ft {
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case TypeNumber:
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case TypeStringArray:
		switch v := value.(type) {
		case []string:
		case []interface{}:
			for _, item := range v {
				if _, ok := item.(string); !ok {
					return fmt.Errorf("expected string array element, got %T", item)
				}
			}
		default:
			return fmt.Errorf("expected string array, got %T", value)
		}
	default:
		return fmt.Errorf("unknown field type %q", ft)
	}
	return nil
}

// Error renders the validation result as one line for event error messages.
func (r *ValidationResult) Error() string {
	if r.Valid {
		return ""
	}
	msg := "invalid payload:"
	for _, e := range r.Errors {
		msg += fmt.Sprintf(" %s (%s);", e.Field, e.Message)
	}
	return msg
}
