// Package extraction turns free-form Gemini responses into structured fields
// and owns the Gemini client used to produce them.
package extraction

import (
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// BulletMarker prefixes every item of a bulleted section.
const BulletMarker = "•"

const (
	DefaultConfidencePercent = 85
	DefaultFairnessScore     = 7
	DefaultFoodName          = "Food Item"
	DefaultSubjectName       = "Unknown"
)

var (
	percentageRe  = regexp.MustCompile(`(\d+)%`)
	subjectNameRe = regexp.MustCompile(`(?i)(?:appears to be|looks like|is a)\s+(?:a\s+)?([^.!?]+)`)
)

// subjectPhrases introduce a subject in sentences like "this looks like a curry".
var subjectPhrases = []string{"appears to be", "looks like", "is a"}

// ExtractedFields is the best-effort structured view of one response.
type ExtractedFields struct {
	IsPositiveClassification bool     `json:"isPositiveClassification"`
	ConfidencePercent        int      `json:"confidencePercent"`
	FairnessScore            int      `json:"fairnessScore"`
	ActionItems              []string `json:"actionItems"`
	SubjectName              string   `json:"subjectName"`
}

// Directives tell Extract which keyword, labels and defaults to use.
type Directives struct {
	ClassificationKeyword string
	DefaultConfidence     int
	ScoreLabel            string
	DefaultScore          int
	ListSection           string
	DefaultSubject        string
}

// ScanDirectives configure extraction for the vegan food scanner.
var ScanDirectives = Directives{
	ClassificationKeyword: "vegan",
	DefaultConfidence:     DefaultConfidencePercent,
	ScoreLabel:            "FAIRNESS SCORE",
	DefaultScore:          DefaultFairnessScore,
	ListSection:           "ACTION ITEMS",
	DefaultSubject:        DefaultFoodName,
}

// MediationDirectives configure extraction for conflict mediation.
var MediationDirectives = Directives{
	ClassificationKeyword: "resolved",
	DefaultConfidence:     DefaultConfidencePercent,
	ScoreLabel:            "FAIRNESS SCORE",
	DefaultScore:          DefaultFairnessScore,
	ListSection:           "ACTION ITEMS",
	DefaultSubject:        DefaultSubjectName,
}

// Extract applies every directive to text. It never fails: anything that
// cannot be found is replaced by the directive's default.
func Extract(text string, d Directives) ExtractedFields {
	items := slices.Collect(ExtractBulletedList(text, d.ListSection))
	if items == nil {
		items = []string{}
	}
	return ExtractedFields{
		IsPositiveClassification: ExtractBooleanClaim(text, d.ClassificationKeyword),
		ConfidencePercent:        ExtractPercentage(text, d.DefaultConfidence),
		FairnessScore:            ExtractLabeledScore(text, d.ScoreLabel, d.DefaultScore),
		ActionItems:              items,
		SubjectName:              ExtractSubjectName(text, d.DefaultSubject),
	}
}

// ExtractBooleanClaim reports whether text mentions keyword without the
// negated forms "not <keyword>" or "isn't <keyword>". Matching is plain
// case-insensitive substring search, so a negation anywhere in the text
// wins over an affirmation elsewhere.
func ExtractBooleanClaim(text, keyword string) bool {
	lower := strings.ToLower(text)
	kw := strings.ToLower(keyword)
	return strings.Contains(lower, kw) &&
		!strings.Contains(lower, "not "+kw) &&
		!strings.Contains(lower, "isn't "+kw)
}

// ExtractPercentage returns the first "<digits>%" in text, or def.
// The value is not range checked.
func ExtractPercentage(text string, def int) int {
	m := percentageRe.FindStringSubmatch(text)
	if m == nil {
		return def
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// overflow
		return def
	}
	return n
}

// ExtractLabeledScore returns the integer following the first
// case-insensitive "<label>:" in text, or def.
func ExtractLabeledScore(text, label string, def int) int {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `:\s*(\d+)`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return def
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return def
	}
	return n
}

// ExtractBulletedList yields the bullet items directly below the first line
// containing "<sectionLabel>:". Iteration stops at the first line that is not
// a bullet. Each range over the result rescans text.
func ExtractBulletedList(text, sectionLabel string) iter.Seq[string] {
	header := sectionLabel + ":"
	return func(yield func(string) bool) {
		inSection := false
		for line := range strings.Lines(text) {
			if !inSection {
				inSection = strings.Contains(line, header)
				continue
			}
			trimmed := strings.TrimSpace(line)
			if !strings.HasPrefix(trimmed, BulletMarker) {
				return
			}
			item := strings.TrimSpace(strings.TrimPrefix(trimmed, BulletMarker))
			if item == "" {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

// ExtractSubjectName looks for the first line shaped like "this appears to
// be X", "this looks like X" or "this is a X" and returns X up to the end of
// its sentence. A leading article "a" is dropped.
func ExtractSubjectName(text, def string) string {
	for line := range strings.Lines(text) {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "this") || !containsAny(lower, subjectPhrases) {
			continue
		}
		m := subjectNameRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}
	return def
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
