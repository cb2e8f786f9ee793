package meal

import "go.uber.org/atomic"

// Stats process wide pipeline counters, safe for concurrent use
type Stats struct {
	started      atomic.Int64
	completed    atomic.Int64
	failed       atomic.Int64
	items        atomic.Int64
	lookupErrors atomic.Int64
	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

// StatsSnapshot is a point in time copy of Stats
type StatsSnapshot struct {
	Started      int64 `json:"started"`
	Completed    int64 `json:"completed"`
	Failed       int64 `json:"failed"`
	Running      int64 `json:"running"`
	Items        int64 `json:"items"`
	LookupErrors int64 `json:"lookup_errors"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func NewStats() *Stats {
	return new(Stats)
}

// record accounts a finished run
func (s *Stats) record(run *Run) {
	switch run.State {
	case Complete:
		s.completed.Inc()
		if run.Report != nil {
			s.items.Add(int64(len(run.Report.Items)))
		}
	case Failed:
		s.failed.Inc()
	}
	s.lookupErrors.Add(int64(len(run.LookupErrors)))
	s.inputTokens.Add(run.Usage.InputTokens)
	s.outputTokens.Add(run.Usage.OutputTokens)
}

func (s *Stats) Snapshot() StatsSnapshot {
	ret := StatsSnapshot{
		Started:      s.started.Load(),
		Completed:    s.completed.Load(),
		Failed:       s.failed.Load(),
		Items:        s.items.Load(),
		LookupErrors: s.lookupErrors.Load(),
		InputTokens:  s.inputTokens.Load(),
		OutputTokens: s.outputTokens.Load(),
	}
	ret.Running = max(ret.Started-ret.Completed-ret.Failed, 0)
	return ret
}
