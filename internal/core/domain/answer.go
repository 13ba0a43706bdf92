package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AnswerStatus is the terminal state of answering one question.
type AnswerStatus string

// Answer statuses.
const (
	AnswerStatusSuccess           AnswerStatus = "success"
	AnswerStatusRefusedOutOfScope AnswerStatus = "refused_out_of_scope"
	AnswerStatusRefusedOffTopic   AnswerStatus = "refused_off_topic"
	AnswerStatusEmpty             AnswerStatus = "empty"
	AnswerStatusFailed            AnswerStatus = "failed"
)

// IsRefusal returns true for guard refusals.
func (s AnswerStatus) IsRefusal() bool {
	return s == AnswerStatusRefusedOutOfScope || s == AnswerStatusRefusedOffTopic
}

// Succeeded reports whether the status counts as a successful query.
// Refusals and empty results are handled outcomes; only failures are not.
func (s AnswerStatus) Succeeded() bool {
	return s != AnswerStatusFailed && s != ""
}

// SourceItem is one citation attached to an answer.
// It is either a StructuredSource or a LegacyTextSource.
type SourceItem interface {
	// Format renders the citation as a single display line.
	Format() string

	isSourceItem()
}

// StructuredSource cites a retrieved chunk.
type StructuredSource struct {
	Company  string   `json:"company"`
	Document string   `json:"document"`
	Pages    []string `json:"pages,omitempty"`
	Section  string   `json:"section,omitempty"`
	Preview  string   `json:"preview"`
	Score    float64  `json:"score"`
}

// Format renders "<company> 약관 <pages>페이지 - 내용: <preview>...", falling
// back to the document id when no page is known.
func (s StructuredSource) Format() string {
	var b strings.Builder
	if len(s.Pages) > 0 {
		fmt.Fprintf(&b, "%s 약관 %s페이지", s.Company, strings.Join(s.Pages, ", "))
	} else {
		fmt.Fprintf(&b, "%s 약관 (문서 ID: %s)", s.Company, s.Document)
	}
	if s.Section != "" {
		fmt.Fprintf(&b, " [%s]", s.Section)
	}
	if s.Preview != "" {
		fmt.Fprintf(&b, " - 내용: %s...", s.Preview)
	}
	return b.String()
}

func (StructuredSource) isSourceItem() {}

// LegacyTextSource is a preformatted citation string, as stored by older records.
type LegacyTextSource struct {
	Text string
}

// Format returns the stored text unchanged.
func (s LegacyTextSource) Format() string {
	return s.Text
}

func (LegacyTextSource) isSourceItem() {}

// Sources is an ordered citation list with a stable JSON form:
// structured items encode as objects, legacy items as plain strings.
type Sources []SourceItem

// MarshalJSON implements json.Marshaler.
func (s Sources) MarshalJSON() ([]byte, error) {
	items := make([]any, len(s))
	for i, item := range s {
		switch v := item.(type) {
		case LegacyTextSource:
			items[i] = v.Text
		case *LegacyTextSource:
			items[i] = v.Text
		default:
			items[i] = v
		}
	}
	return json.Marshal(items)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Sources) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Sources, 0, len(raw))
	for i, item := range raw {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			var text string
			if err := json.Unmarshal(trimmed, &text); err != nil {
				return fmt.Errorf("source %d: %w", i, err)
			}
			out = append(out, LegacyTextSource{Text: text})
			continue
		}
		var structured StructuredSource
		if err := json.Unmarshal(trimmed, &structured); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		out = append(out, structured)
	}
	*s = out
	return nil
}

// Companies returns the distinct companies cited by structured sources,
// in first-seen order.
func (s Sources) Companies() []string {
	seen := make(map[string]bool)
	var companies []string
	for _, item := range s {
		src, ok := item.(StructuredSource)
		if !ok || src.Company == "" || seen[src.Company] {
			continue
		}
		seen[src.Company] = true
		companies = append(companies, src.Company)
	}
	return companies
}

// AnswerRecord is the outcome of answering one question.
type AnswerRecord struct {
	ID        string   `json:"id,omitempty"`
	Question  string   `json:"question"`
	Companies []string `json:"companies,omitempty"`

	// AnsweredCompanies are the companies represented in Sources.
	AnsweredCompanies []string `json:"answered_companies,omitempty"`

	Answer        string       `json:"answer"`
	Sources       Sources      `json:"sources"`
	Status        AnswerStatus `json:"status"`
	Success       bool         `json:"success"`
	Error         string       `json:"error,omitempty"`
	ExecutionTime float64      `json:"execution_time"`
	Summary       string       `json:"summary,omitempty"`
	CreatedAt     time.Time    `json:"created_at,omitempty"`
}

// PrimaryCompany returns the first answered company, or the first requested
// one, or "".
func (r AnswerRecord) PrimaryCompany() string {
	if len(r.AnsweredCompanies) > 0 {
		return r.AnsweredCompanies[0]
	}
	if len(r.Companies) > 0 {
		return r.Companies[0]
	}
	return ""
}
