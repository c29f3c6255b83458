// Package palddiff implements the PALD diff engine: it compares a
// description-derived record against an embodiment-derived record field by
// field, classifying each path as a match, a hallucination, or a missing
// field, and scores overall similarity.
package palddiff

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paldcore/paldcore/pkg/pald"
)

const (
	matchWeight        = 1.0
	hallucinationPenalty = 0.5
	missingPenalty     = 0.8

	numericTolerance = 1.0
)

// Calculate compares description against embodiment and returns the full
// diff result. It never panics: any unexpected failure is caught and
// reported via pald.NewEmptyDiffResult.
func Calculate(description, embodiment *pald.LightRecord) (result *pald.DiffResult) {
	defer func() {
		if r := recover(); r != nil {
			result = pald.NewEmptyDiffResult(fmt.Sprintf("error calculating diff: %v", r))
		}
	}()

	allPaths := unionPaths(description, embodiment)

	matches := map[string]pald.DiffEntry{}
	hallucinations := map[string]pald.DiffEntry{}
	missing := map[string]pald.DiffEntry{}
	classifications := map[string]pald.DiffCategory{}

	for _, path := range allPaths {
		descValue, _ := description.ValueAtPath(path)
		embValue, _ := embodiment.ValueAtPath(path)

		category, reason := classify(descValue, embValue)
		classifications[path] = category
		entry := pald.DiffEntry{Path: path, DescriptionValue: descValue, EmbodimentValue: embValue, Reason: reason}

		switch category {
		case pald.DiffMatch:
			matches[path] = entry
		case pald.DiffHallucination:
			hallucinations[path] = entry
		case pald.DiffMissing:
			missing[path] = entry
		}
	}

	similarity := similarityScore(len(matches), len(hallucinations), len(missing), len(allPaths))
	summary := summarize(matches, hallucinations, missing, similarity)

	return &pald.DiffResult{
		Matches:         matches,
		Hallucinations:  hallucinations,
		Missing:         missing,
		Similarity:      similarity,
		Classifications: classifications,
		Summary:         summary,
	}
}

func unionPaths(description, embodiment *pald.LightRecord) []string {
	set := make(map[string]struct{})
	for _, p := range description.FieldPaths() {
		set[p] = struct{}{}
	}
	for _, p := range embodiment.FieldPaths() {
		set[p] = struct{}{}
	}

	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// classify decides a field path's category: both meaningful and equal is a
// match; both meaningful but differing is a match unless the embodiment
// value is strictly more specific, in which case it's a hallucination;
// description-only is missing; embodiment-only is a hallucination; neither
// present is a match.
func classify(desc, emb pald.Value) (pald.DiffCategory, string) {
	descHas := desc.IsMeaningful()
	embHas := emb.IsMeaningful()

	switch {
	case descHas && embHas:
		if valuesMatch(desc, emb) {
			return pald.DiffMatch, "values match"
		}
		if emb.Specificity() > desc.Specificity() {
			return pald.DiffHallucination, "embodiment value is more specific than description"
		}
		return pald.DiffMatch, "acceptable variation"
	case descHas && !embHas:
		return pald.DiffMissing, "present in description but missing in embodiment"
	case !descHas && embHas:
		return pald.DiffHallucination, "present in embodiment but not in description"
	default:
		return pald.DiffMatch, "both empty"
	}
}

func valuesMatch(a, b pald.Value) bool {
	if a.Kind == pald.KindString && b.Kind == pald.KindString {
		return strings.EqualFold(strings.TrimSpace(a.Str), strings.TrimSpace(b.Str))
	}

	an, aIsNum := numeric(a)
	bn, bIsNum := numeric(b)
	if aIsNum && bIsNum {
		return math.Abs(an-bn) <= numericTolerance
	}

	return a.AsString() == b.AsString()
}

func numeric(v pald.Value) (float64, bool) {
	switch v.Kind {
	case pald.KindInt:
		return float64(v.Int), true
	case pald.KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

func similarityScore(matches, hallucinations, missing, totalPaths int) float64 {
	if totalPaths == 0 {
		return 1.0
	}

	total := float64(matches)*matchWeight - float64(hallucinations)*hallucinationPenalty - float64(missing)*missingPenalty
	maxPossible := float64(totalPaths) * matchWeight

	similarity := total / maxPossible
	if similarity < 0 {
		similarity = 0
	}

	return math.Round(similarity*1000) / 1000
}

func summarize(matches, hallucinations, missing map[string]pald.DiffEntry, similarity float64) string {
	total := len(matches) + len(hallucinations) + len(missing)
	if total == 0 {
		return "no PALD data to compare"
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("PALD comparison summary (similarity: %.1f%%)", similarity*100))

	if len(matches) > 0 {
		lines = append(lines, fmt.Sprintf("%d matching fields", len(matches)))
	}
	if len(hallucinations) > 0 {
		lines = append(lines, fmt.Sprintf("%d potential hallucinations", len(hallucinations)))
		for _, path := range topPaths(hallucinations, 3) {
			lines = append(lines, fmt.Sprintf("  - %s: added in embodiment", path))
		}
	}
	if len(missing) > 0 {
		lines = append(lines, fmt.Sprintf("%d missing fields", len(missing)))
		for _, path := range topPaths(missing, 3) {
			lines = append(lines, fmt.Sprintf("  - %s: missing from embodiment", path))
		}
	}

	switch {
	case similarity >= 0.8:
		lines = append(lines, "assessment: high consistency")
	case similarity >= 0.6:
		lines = append(lines, "assessment: moderate consistency")
	case similarity >= 0.4:
		lines = append(lines, "assessment: low consistency")
	default:
		lines = append(lines, "assessment: poor consistency")
	}

	return strings.Join(lines, "\n")
}

func topPaths(entries map[string]pald.DiffEntry, limit int) []string {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return paths
}
