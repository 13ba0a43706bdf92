package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string   `json:"question" jsonschema:"the pet-insurance question, usually in Korean"`
	Companies []string `json:"companies,omitempty" jsonschema:"insurers to answer for (default all indexed insurers)"`
	Summarise bool     `json:"summarise,omitempty" jsonschema:"also return key points, caveats and advice"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer            string         `json:"answer"`
	Status            string         `json:"status"`
	Success           bool           `json:"success"`
	AnsweredCompanies []string       `json:"answered_companies,omitempty"`
	Sources           []SourceOutput `json:"sources"`
	ExecutionTime     float64        `json:"execution_time"`
	Summary           string         `json:"summary,omitempty"`
	Error             string         `json:"error,omitempty"`
}

// SourceOutput is one citation in an answer.
type SourceOutput struct {
	Label    string   `json:"label"`
	Company  string   `json:"company,omitempty"`
	Document string   `json:"document,omitempty"`
	Pages    []string `json:"pages,omitempty"`
	Section  string   `json:"section,omitempty"`
	Preview  string   `json:"preview,omitempty"`
	Score    float64  `json:"score,omitempty"`
}

// ListCompaniesInput is the (empty) input schema for the list_companies tool.
type ListCompaniesInput struct{}

// ListCompaniesOutput is the output schema for the list_companies tool.
type ListCompaniesOutput struct {
	Companies []string `json:"companies"`
	Count     int      `json:"count"`
}

// StatsInput is the input schema for the performance_stats tool.
type StatsInput struct {
	Reset bool `json:"reset,omitempty" jsonschema:"clear the performance log after reporting"`
}

// StatsOutput is the output schema for the performance_stats tool.
type StatsOutput struct {
	TotalQueries         int            `json:"total_queries"`
	SuccessfulQueries    int            `json:"successful_queries"`
	SuccessRate          float64        `json:"success_rate"`
	AverageExecutionTime float64        `json:"average_execution_time"`
	CompanyUsage         map[string]int `json:"company_usage,omitempty"`
	UptimeSeconds        float64        `json:"uptime_seconds"`
	Alerts               []string       `json:"alerts,omitempty"`
	Recent               []RecentOutput `json:"recent"`
}

// RecentOutput is one recent performance log entry.
type RecentOutput struct {
	Question      string  `json:"question"`
	Status        string  `json:"status"`
	ExecutionTime float64 `json:"execution_time"`
	Error         string  `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a pet-insurance question from the indexed policy documents, with citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_companies",
		Description: "List the insurers whose policies are indexed",
	}, s.handleListCompanies)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "performance_stats",
		Description: "Report success rate, latency and alerts for answered questions",
	}, s.handlePerformanceStats)
}

// handleAsk handles the ask tool invocation. Failed answers are returned as
// output with Success false, not as tool errors.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, AskOutput{}, ErrMissingQuestion
	}

	rec := s.ports.Query.Process(ctx, question, input.Companies)

	if input.Summarise && rec.Status == domain.AnswerStatusSuccess {
		summary, err := s.ports.Query.Summarise(ctx, rec)
		if err != nil {
			rec.Summary = ""
			rec.Error = err.Error()
		} else {
			rec.Summary = summary
		}
	}

	return nil, toAskOutput(rec), nil
}

func toAskOutput(rec domain.AnswerRecord) AskOutput {
	out := AskOutput{
		Answer:            rec.Answer,
		Status:            string(rec.Status),
		Success:           rec.Success,
		AnsweredCompanies: rec.AnsweredCompanies,
		Sources:           make([]SourceOutput, 0, len(rec.Sources)),
		ExecutionTime:     rec.ExecutionTime,
		Summary:           rec.Summary,
		Error:             rec.Error,
	}
	for _, item := range rec.Sources {
		src := SourceOutput{Label: item.Format()}
		if structured, ok := item.(domain.StructuredSource); ok {
			src.Company = structured.Company
			src.Document = structured.Document
			src.Pages = structured.Pages
			src.Section = structured.Section
			src.Preview = structured.Preview
			src.Score = structured.Score
		}
		out.Sources = append(out.Sources, src)
	}
	return out
}

// handleListCompanies handles the list_companies tool invocation.
func (s *Server) handleListCompanies(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListCompaniesInput,
) (*mcp.CallToolResult, ListCompaniesOutput, error) {
	companies := s.companies()
	return nil, ListCompaniesOutput{Companies: companies, Count: len(companies)}, nil
}

// handlePerformanceStats handles the performance_stats tool invocation.
func (s *Server) handlePerformanceStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats := s.ports.Query.PerformanceStats()
	out := toStatsOutput(stats)

	if input.Reset {
		if err := s.ports.Query.ResetPerformance(ctx); err != nil {
			return nil, StatsOutput{}, err
		}
	}
	return nil, out, nil
}

func toStatsOutput(stats domain.PerformanceStats) StatsOutput {
	out := StatsOutput{
		TotalQueries:         stats.TotalQueries,
		SuccessfulQueries:    stats.SuccessfulQueries,
		SuccessRate:          stats.SuccessRate,
		AverageExecutionTime: stats.AverageExecutionTime,
		CompanyUsage:         stats.CompanyUsage,
		UptimeSeconds:        stats.Uptime.Seconds(),
		Alerts:               stats.Alerts,
		Recent:               make([]RecentOutput, len(stats.RecentEntries)),
	}
	for i, e := range stats.RecentEntries {
		out.Recent[i] = RecentOutput{
			Question:      e.Question,
			Status:        string(e.Status),
			ExecutionTime: e.ExecutionTime,
			Error:         e.Error,
		}
	}
	return out
}

func (s *Server) companies() []string {
	if s.ports.Index == nil {
		return []string{}
	}
	companies := s.ports.Index.Companies()
	if companies == nil {
		companies = []string{}
	}
	return companies
}
