package extraction

import (
	"regexp"
	"strings"

	"github.com/paldcore/paldcore/pkg/pald"
)

// extractType returns the first global_design_level.type whose vocabulary
// matches text, checked in typeOrder (most specific first); "" if nothing
// matches. There is no default type - "human" still requires person
// vocabulary.
func extractType(text string) string {
	for _, t := range typeOrder {
		if typeKeywords[t].MatchString(text) {
			return t
		}
	}
	return ""
}

// extractTypeSpecifics fills the nested global_design_level fields specific
// to chosenType: the cartoon object (representation/animation) or the
// animal/fantasy/object sub-type.
func extractTypeSpecifics(rec *pald.LightRecord, text, chosenType string) {
	switch chosenType {
	case "cartoon":
		cartoon := map[string]pald.Value{}
		if m := cartoonRepresentation.FindString(text); m != "" {
			cartoon["representation"] = pald.NewString(strings.ToLower(m))
		}
		if cartoonAnimation.MatchString(text) {
			cartoon["animation"] = pald.NewString("animated")
		}
		if len(cartoon) > 0 {
			rec.Set("global_design_level", "cartoon", pald.NewObject(cartoon))
		}
	case "animal":
		if m := animalTypeKeyword.FindString(text); m != "" {
			rec.Set("global_design_level", "animal_type", pald.NewString(strings.ToLower(m)))
		}
	case "fantasy_figure":
		if m := fantasyTypeKeyword.FindString(text); m != "" {
			rec.Set("global_design_level", "fantasy_figure_type", pald.NewString(strings.ToLower(m)))
		}
	case "object":
		if m := objectTypeKeyword.FindString(text); m != "" {
			rec.Set("global_design_level", "object_type", pald.NewString(strings.ToLower(m)))
		}
	}
}

// extractScale applies root's ranked scalePatterns to text and returns the
// first (most specific) match's score.
func extractScale(text, root string) (int, bool) {
	for _, p := range scalePatterns(root) {
		if p.Pattern.MatchString(text) {
			return p.Score, true
		}
	}
	return 0, false
}

// firstMatch returns re's first match in text, or "".
func firstMatch(re *regexp.Regexp, text string) string {
	return re.FindString(text)
}

// firstVocabularyMatch returns the first entry of vocab that appears in
// text (case-insensitive), checked in vocab order.
func firstVocabularyMatch(text string, vocab []string) string {
	lower := strings.ToLower(text)
	for _, word := range vocab {
		if strings.Contains(lower, word) {
			return word
		}
	}
	return ""
}

var ageWordCategories = map[string]string{
	"child":     "child",
	"young":     "young",
	"teenager":  "teenager",
	"adult":     "adult",
	"elderly":   "elderly",
}

// extractAge returns an integer age Value from an explicit "N years old"
// phrase, or a category string Value from age-indicative vocabulary.
func extractAge(text string) (pald.Value, bool) {
	if m := ageYearsPattern.FindStringSubmatch(text); len(m) > 1 {
		years := 0
		for _, c := range m[1] {
			years = years*10 + int(c-'0')
		}
		return pald.NewInt(int64(years)), true
	}
	if m := ageWordPattern.FindStringSubmatch(text); len(m) > 1 {
		category := ageWordCategories[strings.ToLower(m[1])]
		if category != "" {
			return pald.NewString(category), true
		}
	}
	return pald.Value{}, false
}

// extractGender checks non-binary and other-gender vocabulary before the
// binary male/female patterns, since those patterns also match pronouns
// that could appear alongside more specific vocabulary.
func extractGender(text string) string {
	switch {
	case genderNonBinary.MatchString(text):
		return "non-binary"
	case genderOther.MatchString(text):
		return "other"
	case genderFemale.MatchString(text):
		return "female"
	case genderMale.MatchString(text):
		return "male"
	default:
		return ""
	}
}

const clothingMaxLen = 50

// extractClothing prefers an explicitly anchored phrase ("wearing ...")
// over a bare vocabulary hit, truncating to clothingMaxLen characters.
func extractClothing(text string) string {
	var clothing string
	if m := clothingAnchored.FindStringSubmatch(text); len(m) > 1 {
		clothing = strings.TrimSpace(m[1])
	} else {
		clothing = firstVocabularyMatch(text, clothingVocabulary)
	}
	if clothing == "" {
		return ""
	}
	return truncate(clothing, clothingMaxLen)
}

// extractOtherFeatures joins every "label: value" capture (hair, eyes,
// skin, voice) found in text with "; ".
func extractOtherFeatures(text string) string {
	matches := otherFeaturePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, strings.ToLower(m[1])+": "+strings.TrimSpace(m[2]))
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}

var articlePattern = regexp.MustCompile(`(?i)\b(the|a|an)\b`)

const compressedPromptMaxLen = 200

// buildCompressedPrompt assembles rec's filled fields into a single short
// prompt string for downstream image generation, in a fixed component
// order, stripping articles and collapsing whitespace.
func buildCompressedPrompt(rec *pald.LightRecord) string {
	var parts []string

	if v, ok := rec.Get("global_design_level", "type"); ok {
		parts = append(parts, v.Str)
	}
	if v, ok := rec.Get("global_design_level", "cartoon"); ok && v.Kind == pald.KindObject {
		if rep, ok := v.Object["representation"]; ok {
			parts = append(parts, rep.Str)
		}
		if anim, ok := v.Object["animation"]; ok {
			parts = append(parts, anim.Str)
		}
	}
	if v, ok := rec.Get("global_design_level", "object_type"); ok {
		parts = append(parts, v.Str)
	}
	if v, ok := rec.Get("global_design_level", "animal_type"); ok {
		parts = append(parts, v.Str)
	}
	if v, ok := rec.Get("global_design_level", "fantasy_figure_type"); ok {
		parts = append(parts, v.Str)
	}
	if v, ok := rec.Get("middle_design_level", "lifelikeness"); ok && v.Kind == pald.KindInt {
		if desc, ok := lifelikenessDescriptors[int(v.Int)]; ok {
			parts = append(parts, desc)
		}
	}
	if v, ok := rec.Get("middle_design_level", "role"); ok {
		parts = append(parts, v.Str)
	}
	if v, ok := rec.Get("middle_design_level", "partial_representation"); ok {
		parts = append(parts, v.Str)
	}
	if v, ok := rec.Get("detailed_level", "age"); ok {
		parts = append(parts, v.AsString())
	}
	if v, ok := rec.Get("detailed_level", "gender"); ok {
		parts = append(parts, v.Str)
	}
	if v, ok := rec.Get("detailed_level", "clothing"); ok {
		parts = append(parts, truncate(v.Str, clothingMaxLen))
	}
	if v, ok := rec.Get("detailed_level", "weight"); ok {
		parts = append(parts, v.Str)
	}

	if len(parts) == 0 {
		return "person"
	}

	prompt := strings.Join(parts, " ")
	prompt = articlePattern.ReplaceAllString(prompt, "")
	prompt = strings.Join(strings.Fields(prompt), " ")
	prompt = strings.TrimRight(prompt, " .,;:")

	if prompt == "" {
		return "person"
	}
	return truncate(prompt, compressedPromptMaxLen)
}
