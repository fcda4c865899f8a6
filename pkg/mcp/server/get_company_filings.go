package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/xbrl"
)

// getCompanyFilingsArgs holds the arguments for fetching company filings
type getCompanyFilingsArgs struct {
	CIK      string `json:"cik"`
	FormType string `json:"form_type,omitempty"`
	Year     int    `json:"year,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// FilingInfo represents a single SEC filing
type FilingInfo struct {
	ReportID        string `json:"report_id,omitempty"`
	EntityName      string `json:"entity_name"`
	DocumentType    string `json:"document_type"`
	FilingDate      string `json:"filing_date,omitempty"`
	PeriodEnd       string `json:"period_end,omitempty"`
	AccessionNumber string `json:"accession_number,omitempty"`
}

// GetCompanyFilings fetches SEC filings for a company
func (h *Handler) GetCompanyFilings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getCompanyFilingsArgs{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	if err := validateCIK(args.CIK); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}
	if err := validateYear(args.Year); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}
	limit, err := validateLimit(args.Limit, 10)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	body, err := h.callWithAuth(ctx, func(token *oauth2.Token) ([]byte, error) {
		return h.client.SearchReports(ctx, token, xbrl.ReportQuery{
			CIK:      args.CIK,
			FormType: args.FormType,
			Year:     args.Year,
			Limit:    limit,
		})
	})
	if err != nil {
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}

	var results []FilingInfo
	gjson.GetBytes(body, "data").ForEach(func(_, row gjson.Result) bool {
		results = append(results, FilingInfo{
			ReportID:        row.Get(`report\.id`).String(),
			EntityName:      row.Get(`report\.entity-name`).String(),
			DocumentType:    row.Get(`report\.document-type`).String(),
			FilingDate:      row.Get(`report\.filing-date`).String(),
			PeriodEnd:       row.Get(`report\.period-end`).String(),
			AccessionNumber: row.Get(`report\.accession-number`).String(),
		})
		return true
	})

	return mcp.NewToolResultStructuredOnly(results), nil
}
