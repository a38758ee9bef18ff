package fixfinder

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"sage-engine/internal/models"
)

// parseFinalResponse extracts the JSON object from the model's final text.
// Markdown code fences are stripped; anything outside the outermost braces
// is ignored. Unparseable text yields an empty analysis, never an error.
func parseFinalResponse(text string) map[string]any {
	if strings.Contains(text, "```") {
		var kept []string
		inBlock := false
		for _, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock || strings.HasPrefix(trimmed, "{") {
				kept = append(kept, line)
			}
		}
		text = strings.Join(kept, "\n")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return map[string]any{}
	}

	var analysis map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &analysis); err != nil {
		return map[string]any{}
	}
	return analysis
}

// normalizeAnalysis coerces the model's loosely-shaped analysis into the
// result types. Every field tolerates absence, wrong types, and alternate
// spellings; normalization never fails.
func normalizeAnalysis(analysis map[string]any, citations []models.GuideCitation) *models.FixFinderResult {
	fixes := normalizeFixes(analysis["enhanced_fixes"], citations)
	return &models.FixFinderResult{
		EnhancedFixes:     fixes,
		FixSequences:      normalizeSequences(analysis["fix_sequences"]),
		Simulations:       []models.SimulationResult{},
		RecommendedPath:   normalizeRecommendedPath(analysis["recommended_path"]),
		ProductComparison: flattenToStringMap(analysis["product_comparison"]),
		ReactTrace:        []models.ReactStep{},
	}
}

func normalizeFixes(raw any, citations []models.GuideCitation) []models.EnhancedFixSuggestion {
	items, _ := raw.([]any)
	fixes := make([]models.EnhancedFixSuggestion, 0, len(items))

	for i, item := range items {
		fix, ok := item.(map[string]any)
		if !ok {
			continue
		}

		description := firstString(fix, "description", "fix")
		if description == "" {
			description = "No description provided"
		}
		impact := firstString(fix, "impact", "quantified_impact")
		if impact == "" {
			impact = "Impact not specified"
		}

		priority := i + 1
		if p, ok := toInt(fix["priority_order"]); ok {
			priority = p
		} else if p, ok := toInt(fix["priority"]); ok {
			priority = p
		}

		timeline := toString(fix["estimated_timeline"])
		if timeline == "" {
			timeline = "Varies"
		}

		unlocks := toStringSlice(fix["unlocks_products"])
		if len(unlocks) == 0 {
			unlocks = toStringSlice(fix["products_unlocked"])
		}

		fixes = append(fixes, models.EnhancedFixSuggestion{
			Description:         description,
			Impact:              impact,
			Difficulty:          normalizeDifficulty(toString(fix["difficulty"])),
			Confidence:          clamp(toFloat(fix["confidence"], 0.7), 0, 1),
			PriorityOrder:       priority,
			EstimatedTimeline:   timeline,
			UnlocksProducts:     validProducts(unlocks),
			Citations:           matchCitations(description, citations),
			CompensatingFactors: []models.CompensatingFactor{},
			TradeOffs:           toStringSlice(fix["trade_offs"]),
		})
	}

	return fixes
}

func normalizeSequences(raw any) []models.FixSequence {
	items, _ := raw.([]any)
	sequences := make([]models.FixSequence, 0, len(items))

	for _, item := range items {
		seq, ok := item.(map[string]any)
		if !ok {
			continue
		}

		var steps []models.EnhancedFixSuggestion
		if rawSteps, ok := seq["steps"].([]any); ok {
			for _, rawStep := range rawSteps {
				step, ok := rawStep.(map[string]any)
				if !ok {
					continue
				}
				priority := len(steps) + 1
				if p, ok := toInt(step["priority_order"]); ok {
					priority = p
				}
				timeline := toString(step["estimated_timeline"])
				if timeline == "" {
					timeline = "Varies"
				}
				steps = append(steps, models.EnhancedFixSuggestion{
					Description:         toString(step["description"]),
					Impact:              toString(step["impact"]),
					Difficulty:          normalizeDifficulty(toString(step["difficulty"])),
					Confidence:          clamp(toFloat(step["confidence"], 0.7), 0, 1),
					PriorityOrder:       priority,
					EstimatedTimeline:   timeline,
					UnlocksProducts:     []string{},
					Citations:           []models.GuideCitation{},
					CompensatingFactors: []models.CompensatingFactor{},
					TradeOffs:           []string{},
				})
			}
		}
		// A path with no concrete steps carries no information.
		if len(steps) == 0 {
			continue
		}

		name := toString(seq["sequence_name"])
		if name == "" {
			name = fmt.Sprintf("Path %d", len(sequences)+1)
		}
		timeline := toString(seq["estimated_total_timeline"])
		if timeline == "" {
			timeline = "Varies"
		}

		sequences = append(sequences, models.FixSequence{
			SequenceName:           name,
			Description:            toString(seq["description"]),
			Steps:                  steps,
			TotalEffort:            normalizeEffort(toString(seq["total_effort"])),
			EffortVsBenefitScore:   clamp(toFloat(seq["effort_vs_benefit_score"], 5), 0, 10),
			ProductsUnlocked:       validProducts(toStringSlice(seq["products_unlocked"])),
			EstimatedTotalTimeline: timeline,
		})
	}

	return sequences
}

// normalizeRecommendedPath accepts either a plain string or a nested
// object; the object form is unwrapped via its primary_recommendation key.
func normalizeRecommendedPath(raw any) string {
	switch path := raw.(type) {
	case string:
		return path
	case map[string]any:
		if primary := toString(path["primary_recommendation"]); primary != "" {
			return primary
		}
		if encoded, err := json.Marshal(path); err == nil {
			return truncate(string(encoded), 500)
		}
		return ""
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", path)
	}
}

// flattenToStringMap coerces every value to a string; nested objects are
// JSON-encoded and lists are comma-joined.
func flattenToStringMap(raw any) map[string]string {
	result := map[string]string{}
	source, ok := raw.(map[string]any)
	if !ok {
		return result
	}
	for key, value := range source {
		switch v := value.(type) {
		case string:
			result[key] = v
		case map[string]any:
			if encoded, err := json.Marshal(v); err == nil {
				result[key] = string(encoded)
			}
		case []any:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprintf("%v", item)
			}
			result[key] = strings.Join(parts, ", ")
		default:
			result[key] = fmt.Sprintf("%v", v)
		}
	}
	return result
}

// matchCitations attaches retrieved citations whose snippet mentions any of
// the fix description's leading keywords, capped at three per fix.
func matchCitations(description string, citations []models.GuideCitation) []models.GuideCitation {
	matched := []models.GuideCitation{}
	keywords := strings.Fields(strings.ToLower(description))
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	for _, citation := range citations {
		snippet := strings.ToLower(citation.Snippet)
		for _, kw := range keywords {
			if strings.Contains(snippet, kw) {
				matched = append(matched, citation)
				break
			}
		}
		if len(matched) == 3 {
			break
		}
	}
	return matched
}

func normalizeDifficulty(s string) models.Difficulty {
	switch models.Difficulty(s) {
	case models.DifficultyEasy, models.DifficultyModerate, models.DifficultyHard:
		return models.Difficulty(s)
	default:
		return models.DifficultyModerate
	}
}

func normalizeEffort(s string) models.Effort {
	switch models.Effort(s) {
	case models.EffortLow, models.EffortMedium, models.EffortHigh, models.EffortVeryHigh:
		return models.Effort(s)
	default:
		return models.EffortMedium
	}
}

func validProducts(products []string) []string {
	valid := []string{}
	for _, p := range products {
		if p == "HomeReady" || p == "Home Possible" {
			valid = append(valid, p)
		}
	}
	return valid
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := toString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

// toStringSlice accepts a list of anything or a bare string.
func toStringSlice(v any) []string {
	switch value := v.(type) {
	case []any:
		result := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case string:
		if value == "" {
			return []string{}
		}
		return []string{value}
	default:
		return []string{}
	}
}

func toFloat(v any, fallback float64) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case string:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func toInt(v any) (int, bool) {
	switch value := v.(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	case string:
		if n, err := strconv.Atoi(value); err == nil {
			return n, true
		}
	}
	return 0, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
