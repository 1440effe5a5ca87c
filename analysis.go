package qturing

/*
StepSummary condenses one snapshot of the log: how much probability it
holds, which configuration dominates it and how much of it sits in accept
states.
*/
type StepSummary struct {
	Step              int
	Configurations    int
	TotalProbability  float64
	AcceptProbability float64
	Dominant          Record
}

/*
Analyze summarizes every non-empty snapshot of the log in order. Snapshots
left empty by failed budgets carry no step number and are skipped.
*/
func Analyze(log Log, accept ...string) []StepSummary {
	accepting := make(map[string]struct{}, len(accept))
	for _, state := range accept {
		accepting[state] = struct{}{}
	}

	summaries := make([]StepSummary, 0, len(log))

	for _, records := range log {
		if len(records) == 0 {
			continue
		}

		summary := StepSummary{
			Step:           records[0].Step,
			Configurations: len(records),
			Dominant:       records[0],
		}

		for _, record := range records {
			summary.TotalProbability += record.Probability

			if _, ok := accepting[record.State]; ok {
				summary.AcceptProbability += record.Probability
			}

			if record.Probability > summary.Dominant.Probability {
				summary.Dominant = record
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries
}
