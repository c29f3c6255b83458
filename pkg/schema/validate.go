package schema

import (
	"fmt"

	"github.com/paldcore/paldcore/pkg/pald"
)

// ValidateRecord checks r's field values against schema's descriptors:
// type and range violations are returned as errors; enum mismatches and
// fields unknown to the schema are returned as warnings. Values are never
// dropped, only flagged.
func ValidateRecord(s *pald.Schema, r *pald.LightRecord) (errors []string, warnings []string) {
	for sectionName, fields := range r.Sections {
		section := s.Section(sectionName)
		for fieldName, value := range fields {
			path := sectionName + "." + fieldName
			if section == nil {
				warnings = append(warnings, fmt.Sprintf("%s: section not recognised by schema", path))
				continue
			}
			desc, ok := section[fieldName]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("%s: field not recognised by schema", path))
				continue
			}

			if errs, warns := validateValue(path, desc, value); len(errs) > 0 || len(warns) > 0 {
				errors = append(errors, errs...)
				warnings = append(warnings, warns...)
			}
		}
	}
	return errors, warnings
}

func validateValue(path string, desc *pald.FieldDescriptor, v pald.Value) (errors []string, warnings []string) {
	if v.IsNull() {
		return nil, nil
	}

	typeName := jsonTypeName(v)
	if !desc.AllowsType(typeName) {
		errors = append(errors, fmt.Sprintf("%s: expected type in %v, got %s", path, desc.Types, typeName))
		return errors, warnings
	}

	if len(desc.Enum) > 0 && v.Kind == pald.KindString {
		if !contains(desc.Enum, v.Str) {
			warnings = append(warnings, fmt.Sprintf("%s: value %q not in enum %v", path, v.Str, desc.Enum))
		}
	}

	if desc.Minimum != nil || desc.Maximum != nil {
		num, ok := numericValue(v)
		if ok {
			if desc.Minimum != nil && num < *desc.Minimum {
				errors = append(errors, fmt.Sprintf("%s: value %v below minimum %v", path, num, *desc.Minimum))
			}
			if desc.Maximum != nil && num > *desc.Maximum {
				errors = append(errors, fmt.Sprintf("%s: value %v above maximum %v", path, num, *desc.Maximum))
			}
		}
	}

	return errors, warnings
}

func jsonTypeName(v pald.Value) string {
	switch v.Kind {
	case pald.KindBool:
		return "boolean"
	case pald.KindInt:
		return "integer"
	case pald.KindFloat:
		return "number"
	case pald.KindString:
		return "string"
	case pald.KindList:
		return "array"
	case pald.KindObject:
		return "object"
	default:
		return "null"
	}
}

func numericValue(v pald.Value) (float64, bool) {
	switch v.Kind {
	case pald.KindInt:
		return float64(v.Int), true
	case pald.KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
