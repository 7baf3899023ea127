// Package harness runs mining scenarios: YAML files that pair an input log
// with thresholds and the rules expected to come out.
//
// Each scenario runs in a fresh in-memory store with a frozen clock, so the
// mined rule set is reproducible. The harness mines the parsed records,
// persists the result, reloads it, and checks that the reloaded rule set has
// the same digest before evaluating assertions.
//
// # Scenario format
//
//	name: tutorial
//	description: Sample agent log from the walkthrough
//	thresholds:
//	  min_support: 0.1
//	  min_confidence: 0.5
//	  min_lift: 1.0
//	logs: logs/tutorial.jsonl      # or inline `records:`
//	assertions:
//	  - type: rule_present
//	    key: role
//	    value: admin
//	    action: read_file
//	    confidence: 0.8
//	  - type: rule_count
//	    count: 6
//
// Thresholds left out of the file keep their defaults. Relative log paths
// resolve against the scenario file's directory.
//
// # Golden files
//
// The canonical JSON of the mined rules (timestamp excluded) is the golden
// snapshot. RunWithGolden compares it in tests via goldie; the CLI uses
// GoldenPath, UpdateGolden and CompareGolden.
package harness
