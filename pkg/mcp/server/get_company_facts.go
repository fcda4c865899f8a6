package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/xbrl"
)

// getCompanyFactsArgs holds the arguments for fetching company facts
type getCompanyFactsArgs struct {
	CIK     string `json:"cik"`
	Concept string `json:"concept,omitempty"`
	Year    int    `json:"year,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// FactInfo represents a single reported financial fact
type FactInfo struct {
	Concept      string `json:"concept"`
	Value        string `json:"value"`
	Decimals     string `json:"decimals,omitempty"`
	EntityName   string `json:"entity_name"`
	CIK          string `json:"cik"`
	FiscalYear   int64  `json:"fiscal_year,omitempty"`
	FiscalPeriod string `json:"fiscal_period,omitempty"`
	Unit         string `json:"unit,omitempty"`
}

// GetCompanyFacts fetches reported financial facts for a company
func (h *Handler) GetCompanyFacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getCompanyFactsArgs{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	if err := validateCIK(args.CIK); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}
	if err := validateYear(args.Year); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}
	limit, err := validateLimit(args.Limit, 50)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	body, err := h.callWithAuth(ctx, func(token *oauth2.Token) ([]byte, error) {
		return h.client.SearchFacts(ctx, token, xbrl.FactQuery{
			CIK:     args.CIK,
			Concept: args.Concept,
			Year:    args.Year,
			Limit:   limit,
		})
	})
	if err != nil {
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}

	var results []FactInfo
	gjson.GetBytes(body, "data").ForEach(func(_, row gjson.Result) bool {
		results = append(results, FactInfo{
			Concept:      row.Get(`concept\.local-name`).String(),
			Value:        row.Get(`fact\.value`).String(),
			Decimals:     row.Get(`fact\.decimals`).String(),
			EntityName:   row.Get(`entity\.name`).String(),
			CIK:          row.Get(`entity\.cik`).String(),
			FiscalYear:   row.Get(`period\.fiscal-year`).Int(),
			FiscalPeriod: row.Get(`period\.fiscal-period`).String(),
			Unit:         row.Get("unit").String(),
		})
		return true
	})

	return mcp.NewToolResultStructuredOnly(results), nil
}
