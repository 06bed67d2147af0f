package validation

import (
	"fmt"
	"strings"

	"github.com/okian/skillgrade/internal/domain/model"
)

const defaultGeneralMinWords = 50

var connectors = []string{
	"because", "therefore", "so that", "which means", "as a result",
	"first", "then", "finally", "trade-off", "instead",
}

// General scores strategy and reasoning answers. It is also the fallback strategy.
type General struct{}

func (General) Category() string { return CategoryGeneral }

func (General) Validate(text string, cfg model.ValidationConfig) model.ValidationResult {
	t := newTally()
	minWords := cfg.MinWords
	if minWords <= 0 {
		minWords = defaultGeneralMinWords
	}
	n := len(words(text))
	t.check("min_length", n >= minWords, 25,
		fmt.Sprintf("Answer is brief (%d words); develop it to at least %d.", n, minWords), "")

	structured := len(reSentence.FindAllString(text, -1)) >= 3 ||
		reListMarker.MatchString(text) || strings.Contains(text, "\n\n")
	t.check("structure", structured, 15,
		"Organize the answer into steps or short paragraphs.", "Well structured.")

	hits := containsAny(strings.ToLower(text), connectors)
	t.check("reasoning", len(hits) > 0, 15,
		"Explain why, not only what: connect actions to outcomes.", "Explains its reasoning.")
	t.check("specifics", reDigit.MatchString(text), 10,
		"Add concrete specifics such as numbers, timelines, or metrics.", "Uses concrete specifics.")
	t.keywords(text, cfg, 25)
	return t.result()
}
