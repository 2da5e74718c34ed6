package wizard

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

// FieldError is a validation failure on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var formatPatterns = map[string]string{
	domain.FormatPhone: `^\+?[0-9 ()-]{8,20}$`,
	domain.FormatYear:  `^(19|20)[0-9]{2}$`,
	domain.FormatCPF:   `^[0-9]{3}\.?[0-9]{3}\.?[0-9]{3}-?[0-9]{2}$`,
	domain.FormatMoney: `^[0-9]+([.,][0-9]{1,2})?$`,
	domain.FormatDigit: `^[0-9]+$`,
}

// Validator checks accumulated wizard values against per-step JSON schemas
// compiled from the financing field registry.
type Validator struct {
	steps map[Step]*gojsonschema.Schema
	full  *gojsonschema.Schema
}

// NewValidator compiles one schema per form step plus one for the whole form.
func NewValidator() (*Validator, error) {
	v := &Validator{steps: make(map[Step]*gojsonschema.Schema, len(stepSections))}
	for step := range stepSections {
		schema, err := compile(step.Fields())
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", step, err)
		}
		v.steps[step] = schema
	}

	full, err := compile(domain.FinancingFields)
	if err != nil {
		return nil, fmt.Errorf("compile full schema: %w", err)
	}
	v.full = full
	return v, nil
}

// ValidateStep checks the fields of one step. Steps without fields always pass.
func (v *Validator) ValidateStep(step Step, values map[string]string) []FieldError {
	schema, ok := v.steps[step]
	if !ok {
		return nil
	}
	return validate(schema, values)
}

// ValidateAll checks every field of the form.
func (v *Validator) ValidateAll(values map[string]string) []FieldError {
	return validate(v.full, values)
}

func compile(fields []domain.FieldSpec) (*gojsonschema.Schema, error) {
	props := make(map[string]any, len(fields))
	required := make([]string, 0)
	for _, f := range fields {
		p := map[string]any{"type": "string"}
		if f.Required {
			p["minLength"] = 1
			required = append(required, f.Key)
		}
		if f.MaxLength > 0 {
			p["maxLength"] = f.MaxLength
		}
		switch f.Format {
		case "":
		case domain.FormatEmail, domain.FormatDate:
			p["format"] = f.Format
		default:
			p["pattern"] = formatPatterns[f.Format]
		}
		props[f.Key] = p
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
}

func validate(schema *gojsonschema.Schema, values map[string]string) []FieldError {
	// Blank values count as absent so optional fields skip format checks.
	doc := make(map[string]any, len(values))
	for k, val := range values {
		if val != "" {
			doc[k] = val
		}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return []FieldError{{Field: "form", Message: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	seen := make(map[string]bool)
	errs := make([]FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		if re.Type() == "required" {
			if p, ok := re.Details()["property"].(string); ok {
				field = p
			}
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		errs = append(errs, FieldError{Field: field, Message: message(field, re.Type())})
	}

	order := make(map[string]int, len(domain.FinancingFields))
	for i, f := range domain.FinancingFields {
		order[f.Key] = i
	}
	sort.SliceStable(errs, func(i, j int) bool { return order[errs[i].Field] < order[errs[j].Field] })
	return errs
}

func message(field, kind string) string {
	label := field
	spec, ok := domain.LookupField(field)
	if ok {
		label = spec.Label
	}
	switch kind {
	case "required", "string_gte":
		return label + " is required"
	case "string_lte":
		return fmt.Sprintf("%s must be at most %d characters", label, spec.MaxLength)
	default:
		return "Invalid " + label
	}
}
