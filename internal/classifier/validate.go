package classifier

import (
	"errors"
	"fmt"
	"strings"

	"onboarding-pr-miner/internal/domain"
)

var requiredFields = []string{
	"difficulty",
	"task_clarity",
	"is_reproducible",
	"onboarding_suitability",
	"categories",
	"concepts_taught",
	"prerequisites",
	"reasoning",
}

// Validate checks a parsed response and converts it into a Classification.
// Only difficulty is checked against its allowed values; the other labels
// must merely be strings.
func Validate(raw map[string]any) (*domain.Classification, error) {
	var missing []string
	for _, f := range requiredFields {
		if _, ok := raw[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	difficulty, ok := raw["difficulty"].(string)
	if !ok || !domain.Difficulty(difficulty).Valid() {
		return nil, fmt.Errorf("invalid difficulty: %v. Must be one of: trivial, easy, medium, hard", raw["difficulty"])
	}

	labels := make(map[string]string, 3)
	for _, f := range []string{"task_clarity", "is_reproducible", "onboarding_suitability"} {
		s, ok := raw[f].(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", f)
		}
		labels[f] = s
	}

	lists := make(map[string][]string, 3)
	for _, f := range []string{"categories", "concepts_taught", "prerequisites"} {
		list, err := stringList(raw[f])
		if err != nil {
			return nil, fmt.Errorf("%s %w", f, err)
		}
		lists[f] = list
	}

	reasoning, ok := raw["reasoning"].(string)
	if !ok || strings.TrimSpace(reasoning) == "" {
		return nil, errors.New("reasoning must be a non-empty string")
	}

	return &domain.Classification{
		Difficulty:            domain.Difficulty(difficulty),
		TaskClarity:           labels["task_clarity"],
		IsReproducible:        labels["is_reproducible"],
		OnboardingSuitability: labels["onboarding_suitability"],
		Categories:            lists["categories"],
		ConceptsTaught:        lists["concepts_taught"],
		Prerequisites:         lists["prerequisites"],
		Reasoning:             reasoning,
	}, nil
}

func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New("must be a list")
	}
	if len(items) == 0 {
		return nil, errors.New("must not be empty")
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, errors.New("must contain only strings")
		}
		out = append(out, s)
	}
	return out, nil
}
