package evals

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/wizard/assistant"
	"card-program-wizard/internal/wizard/extract"
	"card-program-wizard/pkg/registry"
)

const (
	CategoryTypo       = "typo_correction"
	CategoryCommands   = "commands"
	CategoryValidation = "validation"

	naturalLanguageMarker = "natural language"
)

type Runner struct {
	target   Target
	catalog  *registry.QuestionCatalog
	provider string
	logger   logger.Logger
	now      func() time.Time
}

func NewRunner(target Target, catalog *registry.QuestionCatalog, provider string, log logger.Logger) *Runner {
	if catalog == nil {
		catalog = registry.Default()
	}
	if provider == "" {
		provider = assistant.ProviderLocal
	}
	return &Runner{
		target:   target,
		catalog:  catalog,
		provider: provider,
		logger:   logger.ForComponent(log, "evals"),
		now:      time.Now,
	}
}

// Run executes every case in order and returns the scored report.
func (r *Runner) Run(ctx context.Context, cases []Case) *Report {
	rep := newReport(r.target.Name(), r.provider)

	for _, c := range cases {
		res := r.runCase(ctx, c)
		rep.add(c, res)

		fields := map[string]interface{}{
			"id":          c.ID,
			"category":    c.Category,
			"passed":      res.Passed,
			"duration_ms": res.Duration,
		}
		if res.Error != "" {
			fields["error"] = res.Error
		}
		r.logger.Debug("eval case finished", fields)
	}

	rep.finish()
	return rep
}

func (r *Runner) question(field string) extract.Question {
	if q, ok := r.catalog.QuestionByField(field); ok {
		return q.Extract()
	}
	return extract.Question{Field: field, Type: extract.TypeText}
}

func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	res := CaseResult{ID: c.ID, Category: c.Category, Description: c.Description, Checks: []Check{}}

	start := r.now()
	resp, err := r.target.Validate(ctx, r.provider, r.question(c.Step), c.Input)
	res.Duration = r.now().Sub(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		res.Checks = append(res.Checks, Check{Name: "API Success", Expected: "success", Actual: "error"})
		return res
	}

	if c.ExpectedValidation != nil {
		res.Checks = append(res.Checks, Check{
			Name:     "Validation Result",
			Passed:   resp.Validated == *c.ExpectedValidation,
			Expected: *c.ExpectedValidation,
			Actual:   resp.Validated,
		})
	}
	if c.ExpectedValue != nil {
		res.Checks = append(res.Checks, Check{
			Name:     "Extracted Value",
			Passed:   valuesEqual(c.ExpectedValue, resp.ExtractedValue),
			Expected: c.ExpectedValue,
			Actual:   resp.ExtractedValue,
		})
	}
	if c.ExpectedCommand != "" {
		res.Checks = append(res.Checks, Check{
			Name:     "Command Recognition",
			Passed:   resp.IsCommand && resp.Command == c.ExpectedCommand,
			Expected: c.ExpectedCommand,
			Actual:   resp.Command,
		})
	}
	if len(c.ExpectedResponseContains) > 0 {
		text := strings.ToLower(resp.AIResponse)
		ok := true
		for _, phrase := range c.ExpectedResponseContains {
			if !strings.Contains(text, strings.ToLower(phrase)) {
				ok = false
				break
			}
		}
		res.Checks = append(res.Checks, Check{
			Name:     "Response Content",
			Passed:   ok,
			Expected: c.ExpectedResponseContains,
			Actual:   resp.AIResponse,
		})
	}

	res.Passed = true
	for _, ch := range res.Checks {
		if !ch.Passed {
			res.Passed = false
			break
		}
	}
	return res
}

// valuesEqual compares after a JSON round trip so that ints, floats and
// decoded YAML or JSON numbers agree. Arrays compare as sets of their
// string forms.
func valuesEqual(expected, actual interface{}) bool {
	e, err1 := normalize(expected)
	a, err2 := normalize(actual)
	if err1 != nil || err2 != nil {
		return false
	}

	ea, eIsList := e.([]interface{})
	aa, aIsList := a.([]interface{})
	if eIsList || aIsList {
		if !eIsList || !aIsList || len(ea) != len(aa) {
			return false
		}
		return reflect.DeepEqual(sortedStrings(ea), sortedStrings(aa))
	}
	return reflect.DeepEqual(e, a)
}

func normalize(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	err = json.Unmarshal(b, &out)
	return out, err
}

func sortedStrings(items []interface{}) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprint(item)
	}
	sort.Strings(out)
	return out
}
