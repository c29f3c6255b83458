package pald

import "sort"

// LightRecord is a sparse attribute record conforming to the schema:
// section -> field -> value. It is produced by the extractor and is
// immutable after construction.
type LightRecord struct {
	Sections          map[string]map[string]Value
	Confidence        float64
	FilledFieldPaths  []string
	MissingFieldPaths []string
	ValidationErrors  []string
}

// NewLightRecord returns an empty, mutable builder record.
func NewLightRecord() *LightRecord {
	return &LightRecord{Sections: make(map[string]map[string]Value)}
}

// Set stores value at section.field, creating the section map on first
// use.
func (r *LightRecord) Set(section, field string, value Value) {
	if r.Sections[section] == nil {
		r.Sections[section] = make(map[string]Value)
	}
	r.Sections[section][field] = value
}

// Get returns the value at section.field and whether it was present.
func (r *LightRecord) Get(section, field string) (Value, bool) {
	s, ok := r.Sections[section]
	if !ok {
		return Value{}, false
	}
	v, ok := s[field]
	return v, ok
}

// DropEmptySections removes sections with no fields.
func (r *LightRecord) DropEmptySections() {
	for name, fields := range r.Sections {
		if len(fields) == 0 {
			delete(r.Sections, name)
		}
	}
}

// FieldPaths returns every dotted field path currently set, sorted.
func (r *LightRecord) FieldPaths() []string {
	var paths []string
	for section, fields := range r.Sections {
		for field := range fields {
			paths = append(paths, section+"."+field)
		}
	}
	sort.Strings(paths)
	return paths
}

// ValueAtPath returns the value at a dotted "section.field" path.
func (r *LightRecord) ValueAtPath(path string) (Value, bool) {
	section, field, ok := splitPath(path)
	if !ok {
		return Value{}, false
	}
	return r.Get(section, field)
}

func splitPath(path string) (section, field string, ok bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:], true
		}
	}
	return "", "", false
}

// DiffCategory classifies a field path's cross-record comparison.
type DiffCategory string

const (
	DiffMatch        DiffCategory = "match"
	DiffHallucination DiffCategory = "hallucination"
	DiffMissing      DiffCategory = "missing"
)

// DiffEntry records both sides' values and a human-readable reason for a
// path's classification.
type DiffEntry struct {
	Path            string
	DescriptionValue Value
	EmbodimentValue Value
	Reason          string
}

// DiffResult is the outcome of comparing a description record against an
// embodiment record.
type DiffResult struct {
	Matches         map[string]DiffEntry
	Hallucinations  map[string]DiffEntry
	Missing         map[string]DiffEntry
	Similarity      float64
	Classifications map[string]DiffCategory
	Summary         string
	Error           bool
}

// NewEmptyDiffResult returns a zero-valued DiffResult used on the error
// path: similarity 0, error flag set, summary carrying the cause.
func NewEmptyDiffResult(summary string) *DiffResult {
	return &DiffResult{
		Matches:         map[string]DiffEntry{},
		Hallucinations:  map[string]DiffEntry{},
		Missing:         map[string]DiffEntry{},
		Classifications: map[string]DiffCategory{},
		Summary:         summary,
		Error:           true,
	}
}
