package mcp

import (
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
)

// CompanyIndex lists indexed companies and their source files.
type CompanyIndex interface {
	Companies() []string
	SourcePath(company string) (string, bool)
}

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Query answers questions and reports performance.
	Query driving.QueryService

	// Index lists indexed companies. Optional.
	Index CompanyIndex
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
