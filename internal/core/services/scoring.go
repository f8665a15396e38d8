package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// The scoring engine grades a profile against a fixed rubric of weighted
// criteria. It is a pure function of the profile record: re-running it on
// the same record always yields the same report, which is why the report is
// recomputed on every read instead of persisted.

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// dashDigitsRe matches the provider-assigned "-12345" suffix of an
// uncustomized profile identifier.
var dashDigitsRe = regexp.MustCompile(`-\d+$`)

// criterion is one rubric entry. Each kind constructor below closes over its
// thresholds and field accessor, keeping the rubric data-driven.
type criterion struct {
	section  string
	name     string
	maxScore float64
	eval     func(p *domain.ProfileRecord) (float64, []string)
}

// lengthCriterion awards full credit at or above threshold characters and
// proportional partial credit below, clamped to maxScore.
func lengthCriterion(section, name string, maxScore float64, threshold int, get func(*domain.ProfileRecord) string) criterion {
	return criterion{
		section:  section,
		name:     name,
		maxScore: maxScore,
		eval: func(p *domain.ProfileRecord) (float64, []string) {
			measured := len([]rune(strings.TrimSpace(get(p))))
			detail := fmt.Sprintf("%s length is %d characters (recommended at least %d)", name, measured, threshold)
			if measured >= threshold {
				return maxScore, []string{detail}
			}
			return maxScore * float64(measured) / float64(threshold), []string{detail}
		},
	}
}

// presenceCriterion is all-or-nothing on a boolean check.
func presenceCriterion(section, name string, maxScore float64, present func(*domain.ProfileRecord) bool) criterion {
	return criterion{
		section:  section,
		name:     name,
		maxScore: maxScore,
		eval: func(p *domain.ProfileRecord) (float64, []string) {
			if present(p) {
				return maxScore, []string{fmt.Sprintf("%s: present", name)}
			}
			return 0, []string{fmt.Sprintf("%s: missing", name)}
		},
	}
}

// countCriterion awards full credit at or above threshold items and
// proportional partial credit below, clamped to maxScore.
func countCriterion(section, name string, maxScore float64, threshold int, unit string, count func(*domain.ProfileRecord) int) criterion {
	return criterion{
		section:  section,
		name:     name,
		maxScore: maxScore,
		eval: func(p *domain.ProfileRecord) (float64, []string) {
			measured := count(p)
			detail := fmt.Sprintf("%d %s listed (recommended at least %d)", measured, unit, threshold)
			if measured >= threshold {
				return maxScore, []string{detail}
			}
			if measured < 0 {
				measured = 0
			}
			return maxScore * float64(measured) / float64(threshold), []string{detail}
		},
	}
}

// emailCriterion checks for an email address embedded in a text field.
func emailCriterion(section, name string, maxScore float64, get func(*domain.ProfileRecord) string) criterion {
	return criterion{
		section:  section,
		name:     name,
		maxScore: maxScore,
		eval: func(p *domain.ProfileRecord) (float64, []string) {
			if emailRe.MatchString(get(p)) {
				return maxScore, []string{fmt.Sprintf("%s: contact email found", name)}
			}
			return 0, []string{fmt.Sprintf("%s: no contact email found", name)}
		},
	}
}

// customURLCriterion awards full credit when the profile identifier has been
// customized, i.e. the last path segment carries no "-digits" suffix.
func customURLCriterion(section, name string, maxScore float64) criterion {
	return criterion{
		section:  section,
		name:     name,
		maxScore: maxScore,
		eval: func(p *domain.ProfileRecord) (float64, []string) {
			url := p.InputURL
			if url == "" {
				url = p.URL
			}
			slug := profileSlug(url)
			if slug == "" {
				return 0, []string{"profile URL missing"}
			}
			if dashDigitsRe.MatchString(slug) {
				return 0, []string{fmt.Sprintf("profile URL %q still carries the default numeric suffix", slug)}
			}
			return maxScore, []string{fmt.Sprintf("profile URL %q is customized", slug)}
		},
	}
}

// profileSlug extracts the last path segment of a profile URL.
func profileSlug(url string) string {
	s := url
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// defaultRubric is the fixed rubric. Section maxima sum to 100 so the
// percentage doubles as the raw total.
var defaultRubric = []criterion{
	lengthCriterion("Headline", "headline", 10, 60, func(p *domain.ProfileRecord) string { return p.Headline }),

	lengthCriterion("Summary", "summary", 15, 200, func(p *domain.ProfileRecord) string { return p.Summary }),
	emailCriterion("Summary", "summary contact", 5, func(p *domain.ProfileRecord) string { return p.Summary }),

	countCriterion("Experience", "experience entries", 10, 3, "positions", func(p *domain.ProfileRecord) int { return len(p.Experiences) }),
	presenceCriterion("Experience", "experience descriptions", 5, func(p *domain.ProfileRecord) bool {
		for _, e := range p.Experiences {
			if strings.TrimSpace(e.Description) != "" {
				return true
			}
		}
		return false
	}),

	presenceCriterion("Education", "education", 10, func(p *domain.ProfileRecord) bool { return len(p.Education) > 0 }),

	countCriterion("Skills", "skills", 15, 10, "skills", func(p *domain.ProfileRecord) int { return len(p.Skills) }),

	customURLCriterion("Profile URL", "custom URL", 5),

	presenceCriterion("Basics", "country", 5, func(p *domain.ProfileRecord) bool { return strings.TrimSpace(p.Country) != "" }),

	presenceCriterion("Certifications", "certifications", 5, func(p *domain.ProfileRecord) bool { return len(p.Certificates) > 0 }),
	presenceCriterion("Languages", "languages", 5, func(p *domain.ProfileRecord) bool { return len(p.Languages) > 0 }),
	presenceCriterion("Recommendations", "recommendations", 5, func(p *domain.ProfileRecord) bool { return len(p.Recommendations) > 0 }),
	presenceCriterion("Projects", "projects", 5, func(p *domain.ProfileRecord) bool { return len(p.Projects) > 0 }),
}

// Score grades the profile against the default rubric.
func Score(p *domain.ProfileRecord) *domain.ScoreReport {
	return scoreWithRubric(p, defaultRubric)
}

func scoreWithRubric(p *domain.ProfileRecord, rubric []criterion) *domain.ScoreReport {
	report := &domain.ScoreReport{}
	index := make(map[string]int) // section name -> position in report.Sections

	for _, c := range rubric {
		score, details := c.eval(p)
		if score < 0 {
			score = 0
		}
		if score > c.maxScore {
			score = c.maxScore
		}

		pos, ok := index[c.section]
		if !ok {
			pos = len(report.Sections)
			index[c.section] = pos
			report.Sections = append(report.Sections, domain.SectionScore{Section: c.section})
		}
		sec := &report.Sections[pos]
		sec.Score += score
		sec.MaxScore += c.maxScore
		sec.Details = append(sec.Details, details...)

		report.TotalScore += score
		report.MaxTotalScore += c.maxScore
	}

	report.Percentage = domain.Percent(report.TotalScore, report.MaxTotalScore)
	report.Grade = domain.LetterGrade(report.Percentage)
	return report
}
