package generative

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/okian/skillgrade/internal/domain/model"
)

//go:embed prompt.tmpl
var promptSource string

var promptTemplate = template.Must(template.New("prompt").Parse(promptSource))

// SystemInstruction is sent alongside every prompt.
const SystemInstruction = "You grade recruiting exercises. Output strict JSON matching the requested schema."

// Input is everything the prompt needs.
type Input struct {
	Game       model.Game
	Submission model.Submission
	Validation model.ValidationResult
}

type promptData struct {
	Category       string
	Difficulty     string
	Task           string
	Rubric         []model.RubricCriterion
	ValidatorNotes []string
	ValidatorScore int
	Submission     string
}

// BuildPrompt renders the grading prompt for in.
func BuildPrompt(in Input) (string, error) {
	notes := in.Validation.Feedback
	if len(notes) == 0 {
		notes = []string{"none"}
	}
	data := promptData{
		Category:       in.Submission.SkillCategory,
		Difficulty:     in.Submission.Difficulty,
		Task:           in.Game.Task,
		Rubric:         in.Game.Rubric,
		ValidatorNotes: notes,
		ValidatorScore: in.Validation.Score,
		Submission:     sanitize(in.Submission.Text),
	}
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// sanitize keeps submissions from closing the data fence or impersonating roles.
func sanitize(text string) string {
	r := strings.NewReplacer(
		"SUBMISSION>>>", "SUBMISSION> > >",
		"<<<SUBMISSION", "< < <SUBMISSION",
		"[System]", "[system-text]",
		"[SYSTEM]", "[system-text]",
	)
	return strings.TrimSpace(r.Replace(text))
}
