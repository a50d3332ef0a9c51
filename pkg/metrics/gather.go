package metrics

import (
	"fmt"
)

// Sum returns the summed value of every series of a counter or gauge in the
// custom registry whose labels include the given pairs. name is the fully
// qualified metric name, e.g. datemaker_orchestrator_workers_started_total.
func Sum(name string, labels map[string]string) (float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrObserveFailed, err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			if !hasLabels(m.GetLabel(), labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		return total, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNotGathered, name)
}

type labelPair interface {
	GetName() string
	GetValue() string
}

func hasLabels[L labelPair](have []L, want map[string]string) bool {
	for k, v := range want {
		found := false
		for _, l := range have {
			if l.GetName() == k && l.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
