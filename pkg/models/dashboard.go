package models

// DashboardStats is the aggregate served by GET /dashboard.
type DashboardStats struct {
	TotalJobs     int64 `json:"totalJobs" yaml:"totalJobs"`
	PendingJobs   int64 `json:"pendingJobs" yaml:"pendingJobs"`
	CompletedJobs int64 `json:"completedJobs" yaml:"completedJobs"`
	TodayJobs     []Job `json:"todayJobs" yaml:"todayJobs"`
}

// CompletionRate is the share of completed jobs, 0 when there are none.
func (d DashboardStats) CompletionRate() float64 {
	if d.TotalJobs == 0 {
		return 0
	}
	return float64(d.CompletedJobs) / float64(d.TotalJobs)
}
