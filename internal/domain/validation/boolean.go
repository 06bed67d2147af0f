package validation

import (
	"fmt"
	"strings"

	"github.com/okian/skillgrade/internal/domain/model"
)

const defaultSearchMaxWords = 60

// BooleanSearch scores boolean sourcing strings.
type BooleanSearch struct{}

func (BooleanSearch) Category() string { return CategoryBooleanSearch }

func (BooleanSearch) Validate(text string, cfg model.ValidationConfig) model.ValidationResult {
	t := newTally()
	searchSyntax(t, text)
	t.check("or_grouping", reOrGroup.MatchString(text), 10,
		"Group alternative titles or skills with OR inside parentheses.",
		"Groups alternatives with OR.")
	t.keywords(text, cfg, 30)
	t.check("location", mentionsLocation(text, cfg.Location), 10,
		fmt.Sprintf("Add the target location (%s).", cfg.Location), "")

	maxWords := cfg.MaxWords
	if maxWords <= 0 {
		maxWords = defaultSearchMaxWords
	}
	t.check("length", len(words(text)) <= maxWords, 5,
		fmt.Sprintf("Search string is long; keep it under %d terms.", maxWords), "")
	return t.result()
}

// searchSyntax applies the operator, parenthesis and quoting checks shared by search strategies.
func searchSyntax(t *tally, text string) {
	t.check("has_operators", reOperators.MatchString(text), 20,
		"Use uppercase boolean operators (AND, OR, NOT).",
		"Uses boolean operators.")
	t.check("balanced_parentheses", balanced(text), 15,
		"Parentheses are unbalanced.", "")

	quotes := strings.Count(text, `"`)
	switch {
	case quotes%2 != 0:
		t.check("quoted_phrases", false, 10, "Quotation marks are unbalanced.", "")
	default:
		t.check("quoted_phrases", reQuoted.MatchString(text), 10,
			`Wrap multi-word titles in quotes, e.g. "talent acquisition".`,
			"Quotes exact phrases.")
	}
}
