package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/xbrl"
)

// searchCompaniesArgs holds the arguments for searching companies
type searchCompaniesArgs struct {
	Query string `json:"query,omitempty"`
	Year  int    `json:"year,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// CompanyInfo represents a company returned by search
type CompanyInfo struct {
	Name       string `json:"name"`
	CIK        string `json:"cik"`
	Ticker     string `json:"ticker,omitempty"`
	FiscalYear int64  `json:"fiscal_year,omitempty"`
}

// SearchCompanies searches for companies by name/ticker or by fiscal year
func (h *Handler) SearchCompanies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := searchCompaniesArgs{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	if args.Query == "" && args.Year == 0 {
		return mcp.NewToolResultError("Either 'query' or 'year' must be provided"), nil
	}
	if err := validateYear(args.Year); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}
	limit, err := validateLimit(args.Limit, 10)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	body, err := h.callWithAuth(ctx, func(token *oauth2.Token) ([]byte, error) {
		if args.Query != "" {
			return h.client.SearchEntities(ctx, token, xbrl.EntityQuery{Name: args.Query, Limit: limit})
		}
		return h.client.SearchFactsByYear(ctx, token, xbrl.FactsByYearQuery{Year: args.Year, Limit: limit})
	})
	if err != nil {
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}

	var results []CompanyInfo
	gjson.GetBytes(body, "data").ForEach(func(_, row gjson.Result) bool {
		results = append(results, CompanyInfo{
			Name:       row.Get(`entity\.name`).String(),
			CIK:        row.Get(`entity\.cik`).String(),
			Ticker:     row.Get(`entity\.ticker`).String(),
			FiscalYear: row.Get(`period\.fiscal-year`).Int(),
		})
		return true
	})

	return mcp.NewToolResultStructuredOnly(results), nil
}
