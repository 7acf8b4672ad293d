// Package evals scores the wizard assistant against a suite of labelled
// answers, either in process or against a deployed API.
package evals

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Case is one labelled answer. Step names the catalog field being asked.
type Case struct {
	ID                       string      `json:"id" yaml:"id"`
	Category                 string      `json:"category" yaml:"category"`
	Description              string      `json:"description" yaml:"description"`
	Step                     string      `json:"step" yaml:"step"`
	Input                    string      `json:"input" yaml:"input"`
	ExpectedValidation       *bool       `json:"expected_validation,omitempty" yaml:"expected_validation,omitempty"`
	ExpectedValue            interface{} `json:"expected_value,omitempty" yaml:"expected_value,omitempty"`
	ExpectedCommand          string      `json:"expected_command,omitempty" yaml:"expected_command,omitempty"`
	ExpectedResponseContains []string    `json:"expected_response_contains,omitempty" yaml:"expected_response_contains,omitempty"`
}

type Suite struct {
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	TestCases []Case `json:"test_cases" yaml:"test_cases"`
}

// LoadCases reads a suite from a .yaml, .yml or .json file.
func LoadCases(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read eval cases: %w", err)
	}

	var suite Suite
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &suite)
	default:
		err = json.Unmarshal(data, &suite)
	}
	if err != nil {
		return nil, fmt.Errorf("parse eval cases %s: %w", path, err)
	}

	if len(suite.TestCases) == 0 {
		return nil, fmt.Errorf("no test cases in %s", path)
	}
	seen := make(map[string]bool, len(suite.TestCases))
	for i, c := range suite.TestCases {
		if c.ID == "" || c.Step == "" {
			return nil, fmt.Errorf("test case %d: id and step are required", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate test case id %q", c.ID)
		}
		seen[c.ID] = true
	}
	return &suite, nil
}
