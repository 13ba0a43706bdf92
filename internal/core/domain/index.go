package domain

import "time"

// CompanyBuildResult reports the outcome of indexing one company.
type CompanyBuildResult struct {
	Company       string        `json:"company"`
	Records       int           `json:"records"`
	Documents     int           `json:"documents"`
	Chunks        int           `json:"chunks"`
	Indexed       int           `json:"indexed"`
	FailedBatches []int         `json:"failed_batches,omitempty"`
	Skipped       bool          `json:"skipped"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// BuildReport reports the outcome of indexing every configured company.
type BuildReport struct {
	Companies []CompanyBuildResult `json:"companies"`
	Duration  time.Duration        `json:"duration"`
}

// Built returns the names of companies that were indexed.
func (r BuildReport) Built() []string {
	var names []string
	for _, c := range r.Companies {
		if !c.Skipped {
			names = append(names, c.Company)
		}
	}
	return names
}
