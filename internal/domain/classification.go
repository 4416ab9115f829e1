package domain

// Difficulty is the technical complexity label.
type Difficulty string

const (
	DifficultyTrivial Difficulty = "trivial"
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
)

// Difficulties lists the allowed values in ascending order.
var Difficulties = []Difficulty{DifficultyTrivial, DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of Difficulties.
func (d Difficulty) Valid() bool {
	for _, v := range Difficulties {
		if d == v {
			return true
		}
	}
	return false
}

const (
	ClarityClear   = "clear"
	ClarityPartial = "partial"
	ClarityPoor    = "poor"

	ReproducibleHighlyLikely = "highly likely"
	ReproducibleMaybe        = "maybe"
	ReproducibleUnclear      = "unclear"

	SuitabilityExcellent = "excellent"
	SuitabilityPoor      = "poor"
)

// Classification holds the LLM-derived onboarding labels for an item.
type Classification struct {
	Difficulty            Difficulty `json:"difficulty"`
	TaskClarity           string     `json:"task_clarity"`
	IsReproducible        string     `json:"is_reproducible"`
	OnboardingSuitability string     `json:"onboarding_suitability"`
	Categories            []string   `json:"categories"`
	ConceptsTaught        []string   `json:"concepts_taught"`
	Prerequisites         []string   `json:"prerequisites"`
	Reasoning             string     `json:"reasoning"`
}

// IsExcellentOnboarding reports whether the item was judged a strong onboarding task.
func (c *Classification) IsExcellentOnboarding() bool {
	return c != nil && c.OnboardingSuitability == SuitabilityExcellent
}
