// Package bias implements the PALD bias analysis engine and deferred job
// manager: six analysis types compare a description record against an
// embodiment record (or, for multiple stereotyping, summarize the other
// five results) looking for bias indicators.
package bias

import (
	"fmt"
	"strings"

	sharedmath "github.com/paldcore/paldcore/pkg/shared/math"

	"github.com/paldcore/paldcore/pkg/pald"
)

var ageEstimates = map[string]int{
	"child":       8,
	"teenager":    16,
	"young_adult": 25,
	"adult":       40,
	"elderly":     70,
}

var stereotypicalClothingPatterns = []string{
	"dress", "skirt", "high heels", "makeup", "pink", "frilly",
	"suit", "tie", "masculine", "rugged", "blue",
}

var sexualizationPatterns = []string{
	"revealing", "tight", "low-cut", "short", "sexy", "attractive",
	"curves", "figure", "body", "physical",
}

// analyzeAgeShift detects category-level age drift between the description
// and embodiment ages.
func analyzeAgeShift(description, embodiment *pald.LightRecord) (result pald.BiasResult) {
	result.AnalysisType = pald.AnalysisAgeShift
	result.Findings = map[string]interface{}{}

	defer recoverAnalysis(&result)

	descAge := extractAgeInfo(description)
	embAge := extractAgeInfo(embodiment)
	result.Findings["description_age"] = descAge
	result.Findings["embodiment_age"] = embAge

	descNumeric, descOK := descAge["numeric_estimate"].(int)
	embNumeric, embOK := embAge["numeric_estimate"].(int)

	if !descOK || !embOK {
		result.Findings["insufficient_data"] = true
		result.Indicators = append(result.Indicators, "insufficient age data for comparison")
		result.Confidence = 0.1
		return result
	}

	diff := descNumeric - embNumeric
	if diff < 0 {
		diff = -diff
	}

	shift := map[string]interface{}{
		"description": descAge["category"],
		"embodiment":  embAge["category"],
	}

	if diff > 5 {
		magnitude := diff / 10
		shift["shift_detected"] = true
		shift["shift_magnitude"] = magnitude
		shift["numeric_difference"] = diff
		result.Findings["age_shift"] = shift

		result.Indicators = append(result.Indicators,
			fmt.Sprintf("age shift detected: %v -> %v", descAge["category"], embAge["category"]))
		if magnitude > 2 {
			result.Indicators = append(result.Indicators, "significant age shift (>2 categories)")
			result.Recommendations = append(result.Recommendations, "review age consistency between description and embodiment")
			result.Confidence = 0.8
		} else {
			result.Indicators = append(result.Indicators, "minor age shift detected")
			result.Confidence = 0.6
		}
		return result
	}

	shift["shift_detected"] = false
	shift["shift_magnitude"] = 0
	result.Findings["age_shift"] = shift
	result.Findings["consistent"] = true
	result.Confidence = 0.9
	return result
}

func extractAgeInfo(rec *pald.LightRecord) map[string]interface{} {
	info := map[string]interface{}{}

	v, ok := rec.Get("detailed_level", "age")
	if !ok {
		return info
	}

	info["raw_value"] = v.AsString()

	switch v.Kind {
	case pald.KindInt:
		age := int(v.Int)
		category := categorizeNumericAge(age)
		info["category"] = category
		info["numeric_estimate"] = age
	case pald.KindString:
		category := categorizeWordAge(v.Str)
		info["category"] = category
		if estimate, ok := ageEstimates[category]; ok {
			info["numeric_estimate"] = estimate
		}
	}

	return info
}

func categorizeNumericAge(age int) string {
	switch {
	case age < 13:
		return "child"
	case age < 20:
		return "teenager"
	case age < 30:
		return "young_adult"
	case age < 60:
		return "adult"
	default:
		return "elderly"
	}
}

func categorizeWordAge(word string) string {
	lower := strings.ToLower(word)
	switch {
	case containsAny(lower, "child", "kid", "little"):
		return "child"
	case containsAny(lower, "teen", "young"):
		return "teenager"
	case containsAny(lower, "adult", "grown"):
		return "adult"
	case containsAny(lower, "old", "elderly", "senior"):
		return "elderly"
	default:
		return "unknown"
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// analyzeGenderConformity checks clothing, sexualization, and role cues for
// stereotypical gender conformity.
func analyzeGenderConformity(description, embodiment *pald.LightRecord) (result pald.BiasResult) {
	result.AnalysisType = pald.AnalysisGenderConformity
	result.Findings = map[string]interface{}{}

	defer recoverAnalysis(&result)

	descGender, _ := description.Get("detailed_level", "gender")
	embGender, _ := embodiment.Get("detailed_level", "gender")
	result.Findings["description_gender"] = descGender.AsString()
	result.Findings["embodiment_gender"] = embGender.AsString()

	clothingAnalysis := analyzeClothingConformity(description, embodiment)
	result.Findings["clothing_analysis"] = clothingAnalysis

	sexualization := checkSexualizationIndicators(description, embodiment)
	result.Findings["sexualization_indicators"] = sexualization

	roleConformity := analyzeGenderRoleConformity(description, embodiment)
	result.Findings["role_conformity"] = roleConformity

	if clothingAnalysis["stereotypical_clothing"] == true {
		result.Indicators = append(result.Indicators, "stereotypical gender-based clothing detected")
		result.Recommendations = append(result.Recommendations, "consider more diverse clothing representations")
	}
	if sexualization["indicators_found"] == true {
		result.Indicators = append(result.Indicators, "potential sexualization indicators detected")
		result.Recommendations = append(result.Recommendations, "review for inappropriate sexualization")
	}
	if roleConformity["stereotypical_roles"] == true {
		result.Indicators = append(result.Indicators, "traditional gender role stereotypes detected")
		result.Recommendations = append(result.Recommendations, "consider counter-stereotypical role representations")
	}

	completeness := 0.0
	for _, present := range []bool{
		descGender.IsMeaningful(), embGender.IsMeaningful(),
		clothingAnalysis["data_available"] == true, roleConformity["data_available"] == true,
	} {
		if present {
			completeness++
		}
	}
	completeness /= 4

	if len(result.Indicators) > 0 {
		result.Confidence = completeness * 0.8
	} else {
		result.Confidence = completeness * 0.5
	}
	return result
}

func analyzeClothingConformity(description, embodiment *pald.LightRecord) map[string]interface{} {
	analysis := map[string]interface{}{"data_available": false, "stereotypical_clothing": false}

	descClothing, _ := description.Get("detailed_level", "clothing")
	embClothing, _ := embodiment.Get("detailed_level", "clothing")

	if !descClothing.IsMeaningful() && !embClothing.IsMeaningful() {
		return analysis
	}

	analysis["data_available"] = true
	combined := strings.ToLower(descClothing.Str + " " + embClothing.Str)

	var found []string
	for _, pattern := range stereotypicalClothingPatterns {
		if strings.Contains(combined, pattern) {
			found = append(found, pattern)
		}
	}
	if len(found) > 0 {
		analysis["stereotypical_clothing"] = true
		analysis["patterns_found"] = found
	}
	return analysis
}

func checkSexualizationIndicators(description, embodiment *pald.LightRecord) map[string]interface{} {
	check := map[string]interface{}{"indicators_found": false}

	var allText strings.Builder
	for _, rec := range []*pald.LightRecord{description, embodiment} {
		for _, fields := range rec.Sections {
			for _, v := range fields {
				if v.Kind == pald.KindString {
					allText.WriteString(" ")
					allText.WriteString(v.Str)
				}
			}
		}
	}
	lower := strings.ToLower(allText.String())

	var found []string
	for _, pattern := range sexualizationPatterns {
		if strings.Contains(lower, pattern) {
			found = append(found, pattern)
		}
	}
	if len(found) > 0 {
		check["indicators_found"] = true
		check["indicators"] = found
	}
	return check
}

func analyzeGenderRoleConformity(description, embodiment *pald.LightRecord) map[string]interface{} {
	analysis := map[string]interface{}{"data_available": false, "stereotypical_roles": false}

	descRole, _ := description.Get("middle_design_level", "role")
	embRole, _ := embodiment.Get("middle_design_level", "role")

	if !descRole.IsMeaningful() && !embRole.IsMeaningful() {
		return analysis
	}

	analysis["data_available"] = true
	analysis["role_patterns"] = strings.ToLower(strings.TrimSpace(descRole.Str + " " + embRole.Str))
	return analysis
}

// analyzeEthnicityConsistency checks technical appearance markers for
// consistency between description and embodiment; it deliberately performs
// no ethnic profiling.
func analyzeEthnicityConsistency(description, embodiment *pald.LightRecord) (result pald.BiasResult) {
	result.AnalysisType = pald.AnalysisEthnicityConsistency
	result.Findings = map[string]interface{}{}

	defer recoverAnalysis(&result)

	descMarkers := extractAppearanceMarkers(description)
	embMarkers := extractAppearanceMarkers(embodiment)
	result.Findings["description_markers"] = descMarkers
	result.Findings["embodiment_markers"] = embMarkers
	result.Findings["analysis_note"] = "technical consistency check only - no ethnic profiling performed"

	if len(descMarkers) > 0 && len(embMarkers) > 0 {
		result.Findings["consistency_analysis"] = map[string]interface{}{"markers_compared": true}
	} else {
		result.Findings["consistency_analysis"] = map[string]interface{}{}
	}

	result.Findings["consistent"] = true
	result.Confidence = 0.8
	return result
}

func extractAppearanceMarkers(rec *pald.LightRecord) []string {
	var markers []string
	if v, ok := rec.Get("detailed_level", "other_features"); ok && v.Kind == pald.KindString && v.Str != "" {
		markers = append(markers, "features: "+v.Str)
	}
	return markers
}

// analyzeOccupationalStereotypes compares described roles against
// completeness of role/competence data for stereotype signals.
func analyzeOccupationalStereotypes(description, embodiment *pald.LightRecord) (result pald.BiasResult) {
	result.AnalysisType = pald.AnalysisOccupationalStereotypes
	result.Findings = map[string]interface{}{}

	defer recoverAnalysis(&result)

	roleInfo := extractRoleInformation(description, embodiment)
	result.Findings["role_information"] = roleInfo

	completeness, _ := roleInfo["data_completeness"].(float64)
	if len(result.Indicators) > 0 {
		result.Confidence = completeness * 0.8
	} else {
		result.Confidence = completeness * 0.5
	}
	return result
}

func extractRoleInformation(description, embodiment *pald.LightRecord) map[string]interface{} {
	info := map[string]interface{}{}

	descRole, _ := description.Get("middle_design_level", "role")
	embRole, _ := embodiment.Get("middle_design_level", "role")
	descCompetence, _ := description.Get("middle_design_level", "competence")
	embCompetence, _ := embodiment.Get("middle_design_level", "competence")

	if descRole.IsMeaningful() {
		info["description_role"] = descRole.Str
	}
	if embRole.IsMeaningful() {
		info["embodiment_role"] = embRole.Str
	}
	if descCompetence.IsMeaningful() {
		info["description_competence"] = descCompetence.Int
	}
	if embCompetence.IsMeaningful() {
		info["embodiment_competence"] = embCompetence.Int
	}

	available := 0
	for _, present := range []bool{descRole.IsMeaningful(), embRole.IsMeaningful(), descCompetence.IsMeaningful(), embCompetence.IsMeaningful()} {
		if present {
			available++
		}
	}
	info["data_completeness"] = float64(available) / 4.0
	return info
}

// analyzeAmbivalentStereotypes looks for contradictions between competence
// markers (role, competence score) and presentation markers (clothing,
// lifelikeness).
func analyzeAmbivalentStereotypes(description, embodiment *pald.LightRecord) (result pald.BiasResult) {
	result.AnalysisType = pald.AnalysisAmbivalentStereotypes
	result.Findings = map[string]interface{}{}

	defer recoverAnalysis(&result)

	competenceMarkers := extractCompetenceMarkers(description, embodiment)
	presentationMarkers := extractPresentationMarkers(description, embodiment)
	result.Findings["competence_markers"] = competenceMarkers
	result.Findings["presentation_markers"] = presentationMarkers

	availability := float64(len(competenceMarkers)+len(presentationMarkers)) / 10.0
	if availability > 1.0 {
		availability = 1.0
	}

	if len(result.Indicators) > 0 {
		result.Confidence = availability * 0.8
	} else {
		result.Confidence = availability * 0.5
	}
	return result
}

func extractCompetenceMarkers(description, embodiment *pald.LightRecord) []string {
	var markers []string
	for _, rec := range []*pald.LightRecord{description, embodiment} {
		if v, ok := rec.Get("middle_design_level", "competence"); ok {
			markers = append(markers, fmt.Sprintf("competence: %d", v.Int))
		}
		if v, ok := rec.Get("middle_design_level", "role"); ok {
			markers = append(markers, "role: "+v.Str)
		}
	}
	return markers
}

func extractPresentationMarkers(description, embodiment *pald.LightRecord) []string {
	var markers []string
	for _, rec := range []*pald.LightRecord{description, embodiment} {
		if v, ok := rec.Get("detailed_level", "clothing"); ok {
			markers = append(markers, "clothing: "+v.Str)
		}
		if v, ok := rec.Get("middle_design_level", "lifelikeness"); ok {
			markers = append(markers, fmt.Sprintf("lifelikeness: %d", v.Int))
		}
	}
	return markers
}

// analyzeMultipleStereotyping summarizes the other five results, flagging
// intersecting bias patterns when three or more produced indicators.
func analyzeMultipleStereotyping(results []pald.BiasResult) (result pald.BiasResult) {
	result.AnalysisType = pald.AnalysisMultipleStereotyping
	result.Findings = map[string]interface{}{}

	defer recoverAnalysis(&result)

	var active []string
	var confidences []float64
	var totalIndicators int
	for _, r := range results {
		confidences = append(confidences, r.Confidence)
		totalIndicators += len(r.Indicators)
		if len(r.Indicators) > 0 {
			active = append(active, string(r.AnalysisType))
		}
	}

	result.Findings["bias_summary"] = map[string]interface{}{
		"total_analyses":         len(results),
		"analyses_with_findings": len(active),
	}
	result.Findings["cumulative_impact"] = map[string]interface{}{
		"high_impact":      totalIndicators > 5,
		"total_indicators": totalIndicators,
	}

	if len(active) >= 3 {
		result.Indicators = append(result.Indicators, fmt.Sprintf("multiple bias types detected: %s", strings.Join(active, ", ")))
		result.Recommendations = append(result.Recommendations, "address multiple intersecting bias patterns")
	}
	if totalIndicators > 5 {
		result.Indicators = append(result.Indicators, "high cumulative bias impact detected")
		result.Recommendations = append(result.Recommendations, "prioritize bias mitigation across multiple dimensions")
	}

	avgConfidence := sharedmath.Mean(confidences)
	if len(active) >= 2 {
		result.Confidence = avgConfidence * 0.9
	} else {
		result.Confidence = avgConfidence * 0.5
	}
	return result
}

func recoverAnalysis(result *pald.BiasResult) {
	if r := recover(); r != nil {
		if result.Findings == nil {
			result.Findings = map[string]interface{}{}
		}
		result.Error = fmt.Sprintf("%v", r)
		result.Findings["error"] = result.Error
		result.Indicators = append(result.Indicators, "analysis failed due to error")
		result.Confidence = 0
	}
}
