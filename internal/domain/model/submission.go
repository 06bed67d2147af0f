// Package model contains domain models passed between layers.
package model

// Submission is one free-text answer to a game.
type Submission struct {
	Text          string
	GameID        string
	SkillCategory string
	Difficulty    string
	HintsUsed     int
}

// RubricCriterion is one scored dimension of a game's rubric.
type RubricCriterion struct {
	Name        string `json:"name" yaml:"name"`
	MaxPoints   int    `json:"maxPoints" yaml:"max_points"`
	Description string `json:"description" yaml:"description"`
}

// ValidationConfig carries per-game inputs for the rule-based validator.
type ValidationConfig struct {
	RequiredKeywords []string            `yaml:"required_keywords"`
	Synonyms         map[string][]string `yaml:"synonyms"`
	Location         string              `yaml:"location"`
	MinWords         int                 `yaml:"min_words"`
	MaxWords         int                 `yaml:"max_words"`
}

// SeedAnswer is an operator-provided reference answer to embed into the corpus.
type SeedAnswer struct {
	Text  string `yaml:"text"`
	Score int    `yaml:"score"`
}

// Game is a registry entry describing one exercise.
type Game struct {
	ID              string            `yaml:"id"`
	Title           string            `yaml:"title"`
	Task            string            `yaml:"task"`
	SkillCategory   string            `yaml:"skill_category"`
	Difficulty      string            `yaml:"difficulty"`
	Rubric          []RubricCriterion `yaml:"rubric"`
	ExampleSolution string            `yaml:"example_solution"`
	Validation      ValidationConfig  `yaml:"validation"`
	Seeds           []SeedAnswer      `yaml:"seeds"`
}

// HasExample reports whether the game defines an example solution.
func (g Game) HasExample() bool { return g.ExampleSolution != "" }
