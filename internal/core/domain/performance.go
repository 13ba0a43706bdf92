package domain

import "time"

// PerformanceEntry records one processed question.
type PerformanceEntry struct {
	Timestamp     time.Time    `json:"timestamp"`
	Question      string       `json:"question"`
	Companies     []string     `json:"companies,omitempty"`
	ExecutionTime float64      `json:"execution_time"`
	Status        AnswerStatus `json:"status"`
	Success       bool         `json:"success"`
	Error         string       `json:"error,omitempty"`
}

// PerformanceStats summarises the performance log.
type PerformanceStats struct {
	TotalQueries         int                `json:"total_queries"`
	SuccessfulQueries    int                `json:"successful_queries"`
	SuccessRate          float64            `json:"success_rate"`
	AverageExecutionTime float64            `json:"average_execution_time"`
	CompanyUsage         map[string]int     `json:"company_usage,omitempty"`
	RecentEntries        []PerformanceEntry `json:"recent_logs"`
	Uptime               time.Duration      `json:"uptime"`
	Alerts               []string           `json:"alerts,omitempty"`
}
