package domain

// AggregateStats summarises a job list. It is always derived from the current
// list and never stored.
type AggregateStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ComputeStats counts jobs by terminal status.
func ComputeStats(jobs []StickerJob) AggregateStats {
	stats := AggregateStats{Total: len(jobs)}
	for _, job := range jobs {
		switch job.Status {
		case JobStatusCompleted:
			stats.Completed++
		case JobStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// Processed is the number of jobs that reached a terminal status.
func (s AggregateStats) Processed() int {
	return s.Completed + s.Failed
}

// Percent returns processed jobs as a percentage of the total.
func (s AggregateStats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Processed()) * 100 / float64(s.Total)
}
