package validation

import (
	"fmt"
	"regexp"

	"github.com/okian/skillgrade/internal/domain/model"
)

var (
	reSiteOperator = regexp.MustCompile(`(?i)\bsite:\S+`)
	reExcludeJobs  = regexp.MustCompile(`(?i)(-\s*(intitle|inurl):|-"?(jobs?|careers?|hiring)\b|\bNOT\s*\(?\s*"?(jobs?|careers?|hiring)\b)`)
)

// PlatformSourcing scores X-ray and platform-specific search strings.
type PlatformSourcing struct{}

func (PlatformSourcing) Category() string { return CategoryPlatformSourcing }

func (PlatformSourcing) Validate(text string, cfg model.ValidationConfig) model.ValidationResult {
	t := newTally()
	t.check("site_operator", reSiteOperator.MatchString(text), 25,
		"Target the platform with a site: operator.",
		"Targets the platform with site:.")
	t.check("has_operators", reOperators.MatchString(text), 15,
		"Use uppercase boolean operators (AND, OR, NOT).", "")
	t.check("balanced_parentheses", balanced(text), 10, "Parentheses are unbalanced.", "")
	t.check("quoted_phrases", reQuoted.MatchString(text), 10,
		"Quote exact titles to avoid partial matches.", "")
	t.check("excludes_job_posts", reExcludeJobs.MatchString(text), 10,
		"Exclude job postings (e.g. -intitle:jobs) to surface profiles.",
		"Filters out job postings.")
	t.keywords(text, cfg, 25)
	t.check("location", mentionsLocation(text, cfg.Location), 10,
		fmt.Sprintf("Add the target location (%s).", cfg.Location), "")
	return t.result()
}
