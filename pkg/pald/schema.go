package pald

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// SectionNames are the three fixed top-level sections every schema must
// carry, in either direct or wrapped form.
var SectionNames = []string{"global_design_level", "middle_design_level", "detailed_level"}

// FieldDescriptor describes one schema field: its permitted types, optional
// enum, optional numeric range, and optional nested properties.
type FieldDescriptor struct {
	Types      []string                    `json:"-"`
	Enum       []string                    `json:"-"`
	Minimum    *float64                    `json:"-"`
	Maximum    *float64                    `json:"-"`
	Properties map[string]*FieldDescriptor `json:"-"`
}

// AllowsType reports whether t (one of string/integer/number/boolean/
// object/array/null) is among the descriptor's permitted types. A
// descriptor with no declared types permits anything.
func (d *FieldDescriptor) AllowsType(t string) bool {
	if len(d.Types) == 0 {
		return true
	}
	for _, allowed := range d.Types {
		if allowed == t {
			return true
		}
	}
	return false
}

// Section is a mapping from field name to descriptor.
type Section map[string]*FieldDescriptor

// Schema is the parsed, versioned attribute schema.
type Schema struct {
	Sections map[string]Section
	Version  string
}

// Section returns the named section, or nil if absent.
func (s *Schema) Section(name string) Section {
	return s.Sections[name]
}

// HasRequiredSections reports whether all of SectionNames are present.
func (s *Schema) HasRequiredSections() bool {
	for _, name := range SectionNames {
		if _, ok := s.Sections[name]; !ok {
			return false
		}
	}
	return true
}

// rawSchemaFile mirrors the on-disk JSON shape loosely enough to detect
// direct vs wrapped form and decode field descriptors generically.
type rawSchemaFile map[string]json.RawMessage

// ParseSchemaJSON parses raw schema JSON in either direct or wrapped form
// and computes its content-hash version. Returns an error if the document
// is not valid JSON or lacks the required top-level sections.
func ParseSchemaJSON(data []byte) (*Schema, error) {
	var doc rawSchemaFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	sectionsRaw := doc
	if wrapped, ok := doc["properties"]; ok {
		var props rawSchemaFile
		if err := json.Unmarshal(wrapped, &props); err != nil {
			return nil, err
		}
		sectionsRaw = props
	}

	schema := &Schema{Sections: make(map[string]Section)}
	for _, name := range SectionNames {
		raw, ok := sectionsRaw[name]
		if !ok {
			continue
		}
		section, err := parseSection(raw)
		if err != nil {
			return nil, err
		}
		schema.Sections[name] = section
	}

	if !schema.HasRequiredSections() {
		return nil, errMissingSections
	}

	schema.Version = contentHash(data)
	return schema, nil
}

type rawDescriptor struct {
	Type       json.RawMessage            `json:"type"`
	Enum       []string                   `json:"enum"`
	Minimum    *float64                   `json:"minimum"`
	Maximum    *float64                   `json:"maximum"`
	Properties map[string]json.RawMessage `json:"properties"`
}

func parseSection(raw json.RawMessage) (Section, error) {
	var obj struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}

	fields := obj.Properties
	if fields == nil {
		// section itself is the field map (no wrapping "properties" key)
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}

	section := make(Section, len(fields))
	for name, fieldRaw := range fields {
		desc, err := parseDescriptor(fieldRaw)
		if err != nil {
			return nil, err
		}
		section[name] = desc
	}
	return section, nil
}

func parseDescriptor(raw json.RawMessage) (*FieldDescriptor, error) {
	var rd rawDescriptor
	if err := json.Unmarshal(raw, &rd); err != nil {
		return nil, err
	}

	desc := &FieldDescriptor{
		Enum:    rd.Enum,
		Minimum: rd.Minimum,
		Maximum: rd.Maximum,
	}

	if len(rd.Type) > 0 {
		var single string
		if err := json.Unmarshal(rd.Type, &single); err == nil {
			desc.Types = []string{single}
		} else {
			var multi []string
			if err := json.Unmarshal(rd.Type, &multi); err == nil {
				desc.Types = multi
			}
		}
	}

	if len(rd.Properties) > 0 {
		desc.Properties = make(map[string]*FieldDescriptor, len(rd.Properties))
		for name, propRaw := range rd.Properties {
			propDesc, err := parseDescriptor(propRaw)
			if err != nil {
				return nil, err
			}
			desc.Properties[name] = propDesc
		}
	}

	return desc, nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

var errMissingSections = newSchemaError("schema missing one or more required sections")

type schemaError string

func newSchemaError(msg string) error { return schemaError(msg) }
func (e schemaError) Error() string   { return string(e) }

// FieldPaths returns every dotted field path declared across all of the
// schema's sections, sorted.
func (s *Schema) FieldPaths() []string {
	var paths []string
	for _, sectionName := range SectionNames {
		section := s.Sections[sectionName]
		for field := range section {
			paths = append(paths, sectionName+"."+field)
		}
	}
	sort.Strings(paths)
	return paths
}

// DefaultSchema returns the built-in fallback schema used when loading the
// configured schema file fails.
func DefaultSchema() *Schema {
	mk := func(types []string, enum []string, min, max *float64) *FieldDescriptor {
		return &FieldDescriptor{Types: types, Enum: enum, Minimum: min, Maximum: max}
	}
	f := func(v float64) *float64 { return &v }

	schema := &Schema{
		Sections: map[string]Section{
			"global_design_level": {
				"type": mk([]string{"string"}, []string{"human", "cartoon", "human_video", "object", "animal", "fantasy_figure"}, nil, nil),
				"cartoon": {
					Types: []string{"object"},
					Properties: map[string]*FieldDescriptor{
						"representation": mk([]string{"string"}, nil, nil, nil),
						"animation":      mk([]string{"string"}, nil, nil, nil),
					},
				},
				"object_type":         mk([]string{"string"}, nil, nil, nil),
				"animal_type":         mk([]string{"string"}, nil, nil, nil),
				"fantasy_figure_type": mk([]string{"string"}, nil, nil, nil),
				"other_characteristics": mk([]string{"string"}, nil, nil, nil),
			},
			"middle_design_level": {
				"lifelikeness":           mk([]string{"integer"}, nil, f(1), f(7)),
				"realism":                mk([]string{"integer"}, nil, f(1), f(7)),
				"animation_level":        mk([]string{"integer"}, nil, f(1), f(7)),
				"likeability":            mk([]string{"integer"}, nil, f(1), f(7)),
				"competence":             mk([]string{"integer"}, nil, f(1), f(7)),
				"role":                   mk([]string{"string"}, nil, nil, nil),
				"partial_representation": mk([]string{"string"}, nil, nil, nil),
				"role_model":             mk([]string{"string"}, nil, nil, nil),
			},
			"detailed_level": {
				"age":            mk([]string{"string", "integer"}, nil, nil, nil),
				"gender":         mk([]string{"string"}, []string{"female", "male", "non-binary", "other"}, nil, nil),
				"clothing":       mk([]string{"string"}, nil, nil, nil),
				"weight":         mk([]string{"string"}, []string{"slim", "average", "heavy", "athletic", "petite"}, nil, nil),
				"other_features": mk([]string{"string"}, nil, nil, nil),
			},
		},
		Version: "default",
	}
	return schema
}
