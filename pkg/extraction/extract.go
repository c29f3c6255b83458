// Package extraction implements the PALD light extractor: schema-
// driven attribute extraction from free text plus compressed-prompt
// construction for downstream image generation.
package extraction

import (
	"fmt"
	"strings"

	"github.com/paldcore/paldcore/pkg/pald"
	"github.com/paldcore/paldcore/pkg/schema"
)

// Result is everything Extract produces for one request.
type Result struct {
	Record           *pald.LightRecord
	CompressedPrompt string
}

// Extract converts description (and optional embodiment) text into a
// schema-conformant LightRecord and a compressed prompt. It never returns
// an error: on any internal failure it returns the documented fallback
// record instead.
func Extract(s *pald.Schema, description, embodiment string) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result = fallback(description, fmt.Sprintf("extraction failed: %v", r))
		}
	}()

	combined := description
	if embodiment != "" {
		combined = combined + " " + embodiment
	}

	if strings.TrimSpace(combined) == "" {
		rec := pald.NewLightRecord()
		rec.Confidence = 0
		rec.DropEmptySections()
		rec.FilledFieldPaths = rec.FieldPaths()
		return &Result{Record: rec, CompressedPrompt: "person"}
	}

	rec := pald.NewLightRecord()

	chosenType := extractType(combined)
	if chosenType != "" {
		rec.Set("global_design_level", "type", pald.NewString(chosenType))
		extractTypeSpecifics(rec, combined, chosenType)
	}

	for field, root := range scaleRoots {
		if v, ok := extractScale(combined, root); ok {
			rec.Set("middle_design_level", field, pald.NewInt(int64(v)))
		}
	}

	if role := firstMatch(roleKeyword, combined); role != "" {
		rec.Set("middle_design_level", "role", pald.NewString(strings.ToLower(role)))
	}
	if m := partialRepresentationPattern.FindStringSubmatch(combined); len(m) > 1 {
		rec.Set("middle_design_level", "partial_representation", pald.NewString(strings.TrimSpace(m[1])))
	}
	if m := roleModelPattern.FindStringSubmatch(combined); len(m) > 1 {
		v := strings.TrimSpace(m[1])
		if len(v) >= 3 && len(v) <= 49 {
			rec.Set("middle_design_level", "role_model", pald.NewString(v))
		}
	}

	if age, ok := extractAge(combined); ok {
		rec.Set("detailed_level", "age", age)
	}

	if gender := extractGender(combined); gender != "" {
		rec.Set("detailed_level", "gender", pald.NewString(gender))
	}

	if clothing := extractClothing(combined); clothing != "" {
		rec.Set("detailed_level", "clothing", pald.NewString(clothing))
	}

	if weight := firstVocabularyMatch(combined, weightVocabulary); weight != "" {
		rec.Set("detailed_level", "weight", pald.NewString(weight))
	}

	if other := extractOtherFeatures(combined); other != "" {
		rec.Set("detailed_level", "other_features", pald.NewString(other))
	}

	rec.DropEmptySections()
	rec.FilledFieldPaths = rec.FieldPaths()
	rec.MissingFieldPaths = missingPaths(s, rec)

	errs, warns := schema.ValidateRecord(s, rec)
	rec.ValidationErrors = append(errs, warns...)

	rec.Confidence = computeConfidence(rec, len(combined))

	prompt := buildCompressedPrompt(rec)

	return &Result{Record: rec, CompressedPrompt: prompt}
}

// computeConfidence scores the produced record: fill rate over the
// record's own fields (meaningful values / total values), scaled down
// hard for sparse records, plus an input-length factor.
func computeConfidence(rec *pald.LightRecord, inputLen int) float64 {
	filled, total := 0, 0
	for _, fields := range rec.Sections {
		for _, v := range fields {
			total++
			if v.IsMeaningful() {
				filled++
			}
		}
	}

	fillRate := 0.0
	if total > 0 {
		fillRate = float64(filled) / float64(total)
	}
	switch {
	case filled <= 1:
		fillRate *= 0.3
	case filled <= 3:
		fillRate *= 0.6
	}

	lengthFactor := float64(inputLen) / 500.0
	if lengthFactor > 1.0 {
		lengthFactor = 1.0
	}

	return 0.8*fillRate + 0.2*lengthFactor
}

func missingPaths(s *pald.Schema, rec *pald.LightRecord) []string {
	filledSet := make(map[string]bool, len(rec.FilledFieldPaths))
	for _, p := range rec.FilledFieldPaths {
		filledSet[p] = true
	}

	var missing []string
	for _, path := range s.FieldPaths() {
		if !filledSet[path] {
			missing = append(missing, path)
		}
	}
	return missing
}

// fallback builds the degraded record mandated on any extraction failure:
// type=human, role=assistant, a minimal regex gender/age scan of the raw
// description, confidence 0.1, and the prompt "person".
func fallback(description, issue string) *Result {
	rec := pald.NewLightRecord()
	rec.Set("global_design_level", "type", pald.NewString("human"))
	rec.Set("middle_design_level", "role", pald.NewString("assistant"))

	if gender := extractGender(description); gender != "" {
		rec.Set("detailed_level", "gender", pald.NewString(gender))
	}
	if age, ok := extractAge(description); ok {
		rec.Set("detailed_level", "age", age)
	}

	rec.DropEmptySections()
	rec.FilledFieldPaths = rec.FieldPaths()
	rec.Confidence = 0.1
	rec.ValidationErrors = []string{issue}

	return &Result{Record: rec, CompressedPrompt: "person"}
}
