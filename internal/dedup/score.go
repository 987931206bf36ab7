package dedup

import (
	"math"
	"strconv"
	"time"

	"stride.fit/curator/internal/geo"
	"stride.fit/curator/internal/globaltime"
	"stride.fit/curator/internal/textnorm"
)

const (
	// Editions older than this many years are ignored by date scoring; a
	// marathon's 1998 edition says nothing about whether two records are the
	// same event today.
	recentEditionYears = 3

	// Neutral business defaults. Absence of data must not penalize a pair.
	missingCategoryScore  = 0.5
	sameSubdivisionScore  = 0.6
	nameFuzzyWeight       = 0.7
	nameKeywordWeight     = 0.3
	locationDateBonus     = 0.05
	editionRatioThreshold = 0.2
	editionRatioMalus     = 0.9
)

// Score computes the duplicate likelihood of an event pair. Pure and total:
// identical inputs always produce the identical DuplicateScore, and it never
// errors or touches I/O.
func Score(a, b EventSummary, cfg DetectionConfig) DuplicateScore {
	nameScore := scoreName(a.Name, b.Name)
	locationScore, distanceKm := scoreLocation(a, b, cfg.MaxDistanceKm)
	dateScore := scoreDates(a.Editions, b.Editions, cfg.DateToleranceDays)
	categoryScore := scoreCategories(a.Editions, b.Editions)

	score := nameScore*cfg.NameWeight +
		locationScore*cfg.LocationWeight +
		dateScore*cfg.DateWeight +
		categoryScore*cfg.CategoryWeight

	// Exact city plus near-exact date is strong independent evidence.
	if locationScore == 1.0 && dateScore >= 0.9 {
		score = math.Min(score+locationDateBonus, 1.0)
	}

	editionRatio := editionCountRatio(len(a.Editions), len(b.Editions))
	if editionRatio < editionRatioThreshold {
		score *= editionRatioMalus
	}

	score = round3(score)
	details := ScoreDetails{
		NameScore:     round3(nameScore),
		LocationScore: round3(locationScore),
		DateScore:     round3(dateScore),
		CategoryScore: round3(categoryScore),
		EditionRatio:  round3(editionRatio),
	}
	if distanceKm != nil {
		rounded := round3(*distanceKm)
		details.DistanceKm = &rounded
	}

	return DuplicateScore{
		Score:       score,
		IsDuplicate: score >= cfg.MinDuplicateScore,
		Details:     details,
	}
}

func scoreName(nameA, nameB string) float64 {
	normalizedA := textnorm.RemoveEditionNumber(textnorm.NormalizeString(nameA))
	normalizedB := textnorm.RemoveEditionNumber(textnorm.NormalizeString(nameB))
	if normalizedA == "" || normalizedB == "" {
		return 0
	}
	if normalizedA == normalizedB {
		return 1.0
	}

	fuzzy := fuzzySimilarity(normalizedA, normalizedB)
	keywords := jaccard(textnorm.KeywordSet(nameA), textnorm.KeywordSet(nameB))
	return nameFuzzyWeight*fuzzy + nameKeywordWeight*keywords
}

// fuzzySimilarity blends an edit-distance ratio with character-trigram
// overlap, taking the stronger signal. The trigram side tolerates word
// reordering, the levenshtein side tolerates typos in short titles.
func fuzzySimilarity(a, b string) float64 {
	return math.Max(levenshteinSimilarity(a, b), trigramJaccard(a, b))
}

func levenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	runesA := []rune(a)
	runesB := []rune(b)
	longest := max(len(runesA), len(runesB))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(runesA, runesB))/float64(longest)
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)
	for j := range previous {
		previous[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[j] = min(
				previous[j]+1,
				min(current[j-1]+1, previous[j-1]+cost),
			)
		}
		previous, current = current, previous
	}
	return previous[len(b)]
}

func trigramJaccard(a, b string) float64 {
	return jaccard(trigramSet(a), trigramSet(b))
}

func trigramSet(text string) map[string]struct{} {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) < 3 {
		return map[string]struct{}{string(runes): {}}
	}
	set := make(map[string]struct{}, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

func jaccard(left, right map[string]struct{}) float64 {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	intersection := 0
	for key := range left {
		if _, ok := right[key]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}
	union := len(left) + len(right) - intersection
	return float64(intersection) / float64(union)
}

// scoreLocation is tiered: equal normalized cities are decisive, then
// coordinate distance, then a shared administrative subdivision.
func scoreLocation(a, b EventSummary, maxDistanceKm float64) (float64, *float64) {
	cityA := textnorm.NormalizeCity(a.City)
	cityB := textnorm.NormalizeCity(b.City)
	if cityA != "" && cityA == cityB {
		return 1.0, nil
	}

	if a.Latitude != nil && a.Longitude != nil && b.Latitude != nil && b.Longitude != nil {
		distance := geo.HaversineKm(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
		return distanceScore(distance, maxDistanceKm), &distance
	}

	if a.SubdivisionCode != "" && a.SubdivisionCode == b.SubdivisionCode {
		return sameSubdivisionScore, nil
	}
	return 0.0, nil
}

// distanceScore maps a coordinate distance to its tier. Tier edges are
// inclusive: exactly maxDistanceKm apart still counts as nearby.
func distanceScore(distanceKm, maxDistanceKm float64) float64 {
	switch {
	case distanceKm <= 5:
		return 1.0
	case distanceKm <= maxDistanceKm:
		return 0.8
	case distanceKm <= 30:
		return 0.5
	case distanceKm <= 50:
		return 0.3
	default:
		return 0.0
	}
}

// scoreDates compares recent editions only and keeps the best match over all
// same-year edition pairs.
func scoreDates(editionsA, editionsB []EditionSummary, toleranceDays int) float64 {
	cutoffYear := globaltime.UTC().Year() - recentEditionYears
	recentA := recentEditions(editionsA, cutoffYear)
	recentB := recentEditions(editionsB, cutoffYear)
	if len(recentA) == 0 || len(recentB) == 0 {
		return 0
	}

	best := 0.0
	for _, editionA := range recentA {
		for _, editionB := range recentB {
			if editionA.Year != editionB.Year {
				continue
			}
			score := 0.5
			if editionA.StartDate != nil && editionB.StartDate != nil {
				days := absDayDifference(*editionA.StartDate, *editionB.StartDate)
				score = dayDifferenceScore(days, toleranceDays)
			}
			if score > best {
				best = score
			}
		}
	}
	return best
}

// dayDifferenceScore maps the absolute day gap between two start dates to its
// tier. Both the 7-day edge and the configured tolerance are inclusive.
func dayDifferenceScore(days, toleranceDays int) float64 {
	switch {
	case days == 0:
		return 1.0
	case days <= 7:
		return 0.9
	case days <= toleranceDays:
		return 0.7
	default:
		return 0.3
	}
}

func recentEditions(editions []EditionSummary, cutoffYear int) []EditionSummary {
	recent := make([]EditionSummary, 0, len(editions))
	for _, edition := range editions {
		year, err := strconv.Atoi(edition.Year)
		if err != nil {
			continue
		}
		if year >= cutoffYear {
			recent = append(recent, edition)
		}
	}
	return recent
}

func absDayDifference(a, b time.Time) int {
	dayA := time.Date(a.UTC().Year(), a.UTC().Month(), a.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayB := time.Date(b.UTC().Year(), b.UTC().Month(), b.UTC().Day(), 0, 0, 0, 0, time.UTC)
	days := int(dayA.Sub(dayB).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// scoreCategories compares the category tag sets across all races of all
// editions. Missing data on either side is neutral, never a penalty.
func scoreCategories(editionsA, editionsB []EditionSummary) float64 {
	setA := categorySet(editionsA)
	setB := categorySet(editionsB)
	if len(setA) == 0 || len(setB) == 0 {
		return missingCategoryScore
	}
	return jaccard(setA, setB)
}

func categorySet(editions []EditionSummary) map[string]struct{} {
	set := make(map[string]struct{})
	for _, edition := range editions {
		for _, race := range edition.Races {
			if race.CategoryLevel1 == "" {
				continue
			}
			set[race.CategoryLevel1] = struct{}{}
		}
	}
	return set
}

func editionCountRatio(countA, countB int) float64 {
	smallest := min(countA, countB)
	largest := max(countA, max(countB, 1))
	return float64(smallest) / float64(largest)
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}
