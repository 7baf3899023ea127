package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/policyminer/internal/miner"
)

// Scenario defines a mining test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the rule set name
	// and the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Thresholds applied to the miner. Omitted fields keep their defaults.
	Thresholds miner.Thresholds `yaml:"thresholds"`

	// Records holds inline log entries, decoded like JSONL lines.
	Records []map[string]any `yaml:"records,omitempty"`

	// Logs is a JSONL file to mine instead of Records. Relative paths are
	// resolved against the scenario file's directory.
	Logs string `yaml:"logs,omitempty"`

	// Assertions validate the mined rule set.
	Assertions []Assertion `yaml:"assertions"`

	baseDir string
}

// Assertion validates the mined rule set.
type Assertion struct {
	// Type specifies the assertion type:
	// - "rule_present": a rule key=value -> action exists, optionally with
	//   the given metrics
	// - "rule_absent": no rule key=value -> action exists
	// - "rule_count": exactly Count rules were mined
	// - "top_rule": the highest-ranked rule is key=value -> action
	Type string `yaml:"type"`

	Key    string `yaml:"key,omitempty"`
	Value  string `yaml:"value,omitempty"`
	Action string `yaml:"action,omitempty"`

	// Expected metrics (rule_present only), compared within MetricTolerance.
	Support    *float64 `yaml:"support,omitempty"`
	Confidence *float64 `yaml:"confidence,omitempty"`
	Lift       *float64 `yaml:"lift,omitempty"`

	// Count is the expected number of rules (rule_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRulePresent = "rule_present"
	AssertRuleAbsent  = "rule_absent"
	AssertRuleCount   = "rule_count"
	AssertTopRule     = "top_rule"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.baseDir = filepath.Dir(path)
	return scenario, nil
}

// ParseScenario parses scenario YAML. Relative log paths resolve against
// the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := Scenario{Thresholds: miner.DefaultThresholds()}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LogsPath returns the resolved log file path, or "" for inline records.
func (s *Scenario) LogsPath() string {
	if s.Logs == "" {
		return ""
	}
	if filepath.IsAbs(s.Logs) || s.baseDir == "" {
		return s.Logs
	}
	return filepath.Join(s.baseDir, s.Logs)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Logs != "" && len(s.Records) > 0 {
		return fmt.Errorf("records and logs are mutually exclusive")
	}

	if err := s.Thresholds.Validate(); err != nil {
		return err
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}

	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertRulePresent, AssertRuleAbsent, AssertTopRule:
		if a.Key == "" || a.Action == "" {
			return fmt.Errorf("%s requires key and action", a.Type)
		}
		if a.Type != AssertRulePresent && (a.Support != nil || a.Confidence != nil || a.Lift != nil) {
			return fmt.Errorf("%s does not take metrics", a.Type)
		}
		if a.Count != nil {
			return fmt.Errorf("%s does not take count", a.Type)
		}
	case AssertRuleCount:
		if a.Count == nil {
			return fmt.Errorf("rule_count requires count")
		}
		if *a.Count < 0 {
			return fmt.Errorf("rule_count count must be non-negative, got %d", *a.Count)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
