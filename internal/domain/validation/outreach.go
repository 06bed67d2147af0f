package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/okian/skillgrade/internal/domain/model"
)

const (
	defaultOutreachMinWords = 40
	defaultOutreachMaxWords = 150
)

var (
	rePersonal = regexp.MustCompile(`(?i)\byour (recent |latest )?(work|post|talk|article|project|team|experience|background|career|journey|launch|research|paper|repo|open[- ]source)\b`)
	reNoticed  = regexp.MustCompile(`(?i)\b(i noticed|i saw|came across|i read|congrat\w*|impressed by)\b`)
	reGreeting = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|dear|good (morning|afternoon|evening))\b`)
)

var ctaPhrases = []string{
	"would you be open", "are you open", "would you be interested", "let me know",
	"schedule", "quick call", "15 minutes", "20 minutes", "grab time", "chat",
}

var biasedTerms = []string{
	"young", "digital native", "rockstar", "ninja", "guru", "recent grad",
	"guys", "manpower", "cultural fit", "energetic", "native english",
}

// Outreach scores candidate outreach messages.
type Outreach struct{}

func (Outreach) Category() string { return CategoryOutreach }

func (Outreach) Validate(text string, cfg model.ValidationConfig) model.ValidationResult {
	t := newTally()
	lower := strings.ToLower(text)

	depth := len(rePersonal.FindAllString(text, -1)) + len(reNoticed.FindAllString(text, -1))
	switch {
	case depth == 0:
		t.check("personalization", false, 20,
			"Reference something specific about the candidate's work or background.", "")
	case depth == 1:
		t.check("personalization", false, 8,
			"Personalization is thin; connect their background to the role.", "")
	default:
		t.check("personalization", true, 0, "", "Personalizes the message.")
	}

	hasCTA := strings.Contains(text, "?") || len(containsAny(lower, ctaPhrases)) > 0
	t.check("call_to_action", hasCTA, 20,
		"End with a clear, low-friction call to action.", "Closes with a call to action.")

	minWords, maxWords := cfg.MinWords, cfg.MaxWords
	if minWords <= 0 {
		minWords = defaultOutreachMinWords
	}
	if maxWords <= 0 {
		maxWords = defaultOutreachMaxWords
	}
	n := len(words(text))
	t.check("min_length", n >= minWords, 15,
		fmt.Sprintf("Message is too short (%d words); aim for at least %d.", n, minWords), "")
	t.check("max_length", n <= maxWords, 15,
		fmt.Sprintf("Message is too long (%d words); keep it under %d.", n, maxWords), "")

	biased := containsAny(lower, biasedTerms)
	t.check("inclusive_language", len(biased) == 0, 20,
		"Replace exclusionary wording: "+strings.Join(biased, ", ")+".", "Uses inclusive language.")

	t.check("greeting", reGreeting.MatchString(text), 5, "Open with a greeting.", "")
	t.check("tone", strings.Count(text, "!") <= 2, 5, "Tone down exclamation marks.", "")
	t.keywords(text, cfg, 15)
	return t.result()
}
