package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for pawclause resources.
	uriScheme = "pawclause://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "companies",
		Name:        "companies",
		Description: "Insurers whose policies are indexed",
		MIMEType:    "application/json",
	}, s.handleCompaniesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "companies/{company}",
		Name:        "company",
		Description: "An indexed insurer and its policy source file",
		MIMEType:    "application/json",
	}, s.handleCompanyResource)
}

type companyInfo struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
	URI    string `json:"uri"`
}

func (s *Server) info(company string) companyInfo {
	info := companyInfo{Name: company, URI: uriScheme + "companies/" + company}
	if s.ports.Index != nil {
		if path, ok := s.ports.Index.SourcePath(company); ok {
			info.Source = filepath.Base(path)
		}
	}
	return info
}

// handleCompaniesResource returns every indexed company.
func (s *Server) handleCompaniesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	companies := s.companies()
	infos := make([]companyInfo, len(companies))
	for i, c := range companies {
		infos[i] = s.info(c)
	}
	return jsonResource(req.Params.URI, infos)
}

// handleCompanyResource returns one indexed company.
func (s *Server) handleCompanyResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	company := extractCompany(req.Params.URI)
	if company == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	for _, c := range s.companies() {
		if c == company {
			return jsonResource(req.Params.URI, s.info(c))
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCompany extracts the company from a URI like pawclause://companies/{company}.
func extractCompany(uri string) string {
	const prefix = uriScheme + "companies/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	company := strings.TrimPrefix(uri, prefix)
	if strings.Contains(company, "/") {
		return ""
	}
	return company
}
