package evals

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultThreshold = 85.0

type Check struct {
	Name     string      `json:"name"`
	Passed   bool        `json:"passed"`
	Expected interface{} `json:"expected"`
	Actual   interface{} `json:"actual"`
}

type CaseResult struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Passed      bool    `json:"passed"`
	Checks      []Check `json:"checks"`
	Duration    int64   `json:"duration"`
	Error       string  `json:"error,omitempty"`
}

type CategoryStats struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Metrics are percentages except for the two timings, which are in
// milliseconds.
type Metrics struct {
	AvgResponseTime              float64 `json:"avg_response_time"`
	TotalTime                    int64   `json:"total_time"`
	ValidationAccuracy           float64 `json:"validation_accuracy"`
	TypoCorrectionRate           float64 `json:"typo_correction_rate"`
	CommandRecognitionRate       float64 `json:"command_recognition_rate"`
	NaturalLanguageUnderstanding float64 `json:"natural_language_understanding"`
	FatalError                   string  `json:"fatal_error,omitempty"`
	Target                       string  `json:"target,omitempty"`
	Provider                     string  `json:"provider,omitempty"`
}

type Report struct {
	Total       int                       `json:"total"`
	Passed      int                       `json:"passed"`
	Failed      int                       `json:"failed"`
	Errors      int                       `json:"errors"`
	ByCategory  map[string]*CategoryStats `json:"by_category"`
	TestDetails []CaseResult              `json:"test_details"`
	Metrics     Metrics                   `json:"metrics"`
}

func newReport(target, provider string) *Report {
	return &Report{
		ByCategory:  map[string]*CategoryStats{},
		TestDetails: []CaseResult{},
		Metrics:     Metrics{Target: target, Provider: provider},
	}
}

// FatalReport records a run that could not start.
func FatalReport(target, provider string, err error) *Report {
	rep := newReport(target, provider)
	rep.Errors = 1
	rep.Metrics.FatalError = err.Error()
	return rep
}

func (r *Report) add(c Case, res CaseResult) {
	r.Total++
	r.TestDetails = append(r.TestDetails, res)
	switch {
	case res.Error != "":
		r.Errors++
	case res.Passed:
		r.Passed++
	default:
		r.Failed++
	}

	stats, ok := r.ByCategory[c.Category]
	if !ok {
		stats = &CategoryStats{}
		r.ByCategory[c.Category] = stats
	}
	stats.Total++
	if res.Passed {
		stats.Passed++
	} else {
		stats.Failed++
	}
}

func (r *Report) finish() {
	if r.Total == 0 {
		return
	}
	for _, d := range r.TestDetails {
		r.Metrics.TotalTime += d.Duration
	}
	r.Metrics.AvgResponseTime = float64(r.Metrics.TotalTime) / float64(r.Total)
	r.Metrics.ValidationAccuracy = percent(r.Passed, r.Total)

	r.Metrics.TypoCorrectionRate = r.passRate(func(d CaseResult) bool { return d.Category == CategoryTypo })
	r.Metrics.CommandRecognitionRate = r.passRate(func(d CaseResult) bool { return d.Category == CategoryCommands })
	r.Metrics.NaturalLanguageUnderstanding = r.passRate(func(d CaseResult) bool {
		return d.Category == CategoryValidation && strings.Contains(strings.ToLower(d.Description), naturalLanguageMarker)
	})
}

func (r *Report) passRate(match func(CaseResult) bool) float64 {
	total, passed := 0, 0
	for _, d := range r.TestDetails {
		if !match(d) {
			continue
		}
		total++
		if d.Passed {
			passed++
		}
	}
	return percent(passed, total)
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

// MeetsThreshold reports whether overall accuracy reaches threshold percent.
func (r *Report) MeetsThreshold(threshold float64) bool {
	return r.Metrics.FatalError == "" && r.Metrics.ValidationAccuracy >= threshold
}

// Save writes eval-results-<timestamp>.json and latest.json into dir and
// returns the timestamped path.
func (r *Report) Save(dir string, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}

	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(at.UTC().Format("2006-01-02T15:04:05.000Z"))
	path := filepath.Join(dir, "eval-results-"+stamp+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "latest.json"), data, 0o644); err != nil {
		return "", fmt.Errorf("write latest results: %w", err)
	}
	return path, nil
}
