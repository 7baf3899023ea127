package miner

import "github.com/roach88/policyminer/internal/record"

// feature is a context key paired with the string form of its value.
type feature struct {
	key   string
	value string
}

// triple is a candidate rule: feature → action.
type triple struct {
	feature
	action string
}

// tables holds the frequency counts gathered in one pass over the records.
// Only triples that actually occur are materialized; order records the
// sequence in which they were first seen.
type tables struct {
	total    int
	actions  map[string]int
	features map[feature]int
	joint    map[triple]int
	order    []triple
}

// count builds the frequency tables. Context keys are visited in sorted
// order so that first-seen order does not depend on map iteration.
func count(records []record.ActionRecord) *tables {
	t := &tables{
		total:    len(records),
		actions:  make(map[string]int),
		features: make(map[feature]int),
		joint:    make(map[triple]int),
	}

	for _, rec := range records {
		t.actions[rec.Action]++

		for _, key := range record.SortedKeys(rec.Context) {
			f := feature{key: key, value: record.Stringify(rec.Context[key])}
			t.features[f]++

			tr := triple{feature: f, action: rec.Action}
			if _, seen := t.joint[tr]; !seen {
				t.order = append(t.order, tr)
			}
			t.joint[tr]++
		}
	}

	return t
}

// metrics are the unrounded association measures of a triple.
type metrics struct {
	support    float64
	confidence float64
	lift       float64
}

// measure computes the metrics of a materialized triple. joint >= 1 for any
// such triple, so feature and action counts are never zero.
//
// Lift is evaluated as joint·total / (feature·action), which equals
// confidence / (action/total) but keeps ratios such as n·n/(n·n) exact.
func (t *tables) measure(tr triple) metrics {
	joint := float64(t.joint[tr])
	total := float64(t.total)
	feat := float64(t.features[tr.feature])
	action := float64(t.actions[tr.action])

	return metrics{
		support:    joint / total,
		confidence: joint / feat,
		lift:       (joint * total) / (feat * action),
	}
}
