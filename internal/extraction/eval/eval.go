// Package eval scores extraction strategies against recorded Gemini responses
// with hand-labelled ground truth. It is used to check how well the pattern
// based extractor copes when the model drifts from the requested format.
package eval

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/castlemilk/pocketai/internal/extraction"
)

// itemMatchThreshold is the minimum similarity for an action item to count as found.
const itemMatchThreshold = 0.8

// EvalResult holds metrics from running one strategy on one fixture.
type EvalResult struct {
	Strategy         string
	Fixture          string
	ClassificationOK bool
	ConfidenceOK     bool
	ScoreOK          bool
	ActionItems      CountMetrics
	SubjectSim       float64
	OverallScore     float64
	Duration         time.Duration
}

// CountMetrics measures action item detection.
type CountMetrics struct {
	Expected  int
	Extracted int
	Matched   int
	Precision float64
	Recall    float64
	F1        float64
}

// StrategyFunc extracts fields from a response of the given kind.
type StrategyFunc func(text string, kind Kind) extraction.ExtractedFields

// DirectivesStrategy runs the production extractor with the preset for kind.
func DirectivesStrategy(text string, kind Kind) extraction.ExtractedFields {
	return extraction.Extract(text, kind.Directives())
}

// DefaultsStrategy ignores the text and returns the preset defaults. It is
// the floor any real strategy should beat.
func DefaultsStrategy(_ string, kind Kind) extraction.ExtractedFields {
	return extraction.Extract("", kind.Directives())
}

// ComputeMetrics compares extracted fields against the expected ones.
func ComputeMetrics(strategy, fixture string, got, want extraction.ExtractedFields, duration time.Duration) *EvalResult {
	r := &EvalResult{
		Strategy:         strategy,
		Fixture:          fixture,
		ClassificationOK: got.IsPositiveClassification == want.IsPositiveClassification,
		ConfidenceOK:     got.ConfidencePercent == want.ConfidencePercent,
		ScoreOK:          got.FairnessScore == want.FairnessScore,
		ActionItems:      matchItems(got.ActionItems, want.ActionItems),
		SubjectSim:       textSimilarity(got.SubjectName, want.SubjectName),
		Duration:         duration,
	}

	r.OverallScore = 0.25*boolScore(r.ClassificationOK) +
		0.15*boolScore(r.ConfidenceOK) +
		0.15*boolScore(r.ScoreOK) +
		0.25*r.ActionItems.F1 +
		0.20*r.SubjectSim
	return r
}

// matchItems greedily pairs extracted items with expected ones by similarity.
// Two empty lists are a perfect match.
func matchItems(extracted, expected []string) CountMetrics {
	m := CountMetrics{Expected: len(expected), Extracted: len(extracted)}
	if len(extracted) == 0 && len(expected) == 0 {
		m.Precision, m.Recall, m.F1 = 1, 1, 1
		return m
	}

	used := make([]bool, len(expected))
	for _, ext := range extracted {
		best, bestSim := -1, itemMatchThreshold
		for j, exp := range expected {
			if used[j] {
				continue
			}
			if sim := textSimilarity(ext, exp); sim >= bestSim {
				best, bestSim = j, sim
			}
		}
		if best >= 0 {
			used[best] = true
			m.Matched++
		}
	}

	if m.Extracted > 0 {
		m.Precision = float64(m.Matched) / float64(m.Extracted)
	}
	if m.Expected > 0 {
		m.Recall = float64(m.Matched) / float64(m.Expected)
	}
	if p, rc := m.Precision, m.Recall; p+rc > 0 {
		m.F1 = 2 * p * rc / (p + rc)
	}
	return m
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// textSimilarity returns a 0-1 similarity score using normalized Levenshtein distance.
func textSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr := make([]int, len(rb)+1)
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev = curr
	}
	return prev[len(rb)]
}

// --- Runner ---

// RunEval executes every strategy against every fixture. Results are ordered
// by fixture, then strategy name.
func RunEval(strategies map[string]StrategyFunc, fixtures []*Fixture) []*EvalResult {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	slices.Sort(names)

	var results []*EvalResult
	for _, fixture := range fixtures {
		for _, name := range names {
			start := time.Now()
			got := strategies[name](fixture.Text, fixture.Kind)
			results = append(results, ComputeMetrics(name, fixture.Name, got, fixture.Expected, time.Since(start)))
		}
	}
	return results
}

// --- Summary Printer ---

// PrintSummary outputs a formatted comparison table to an io.Writer.
func PrintSummary(w io.Writer, results []*EvalResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "Strategy\tFixture\tClass\tConf\tScore\tItems F1\tSubject~\tOverall\tTime")
	fmt.Fprintln(tw, "--------\t-------\t-----\t----\t-----\t--------\t--------\t-------\t----")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%s\n",
			r.Strategy,
			r.Fixture,
			mark(r.ClassificationOK),
			mark(r.ConfidenceOK),
			mark(r.ScoreOK),
			r.ActionItems.F1,
			r.SubjectSim,
			r.OverallScore,
			r.Duration.Round(time.Microsecond),
		)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Strategy Averages ===")

	scores := make(map[string][]float64)
	for _, r := range results {
		scores[r.Strategy] = append(scores[r.Strategy], r.OverallScore)
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	slices.Sort(names)

	tw2 := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw2, "Strategy\tAvg Score\tFixtures")
	fmt.Fprintln(tw2, "--------\t---------\t--------")
	for _, name := range names {
		fmt.Fprintf(tw2, "%s\t%.3f\t%d\n", name, avg(scores[name]), len(scores[name]))
	}
	tw2.Flush()
}

func mark(ok bool) string {
	if ok {
		return "ok"
	}
	return "miss"
}

func avg(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
