package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/xbrl"
)

// searchConceptsArgs holds the arguments for searching concepts
type searchConceptsArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// ConceptInfo represents an XBRL taxonomy concept
type ConceptInfo struct {
	LocalName   string `json:"local_name"`
	Namespace   string `json:"namespace,omitempty"`
	BalanceType string `json:"balance_type,omitempty"`
	DataType    string `json:"data_type,omitempty"`
	PeriodType  string `json:"period_type,omitempty"`
}

// SearchConcepts searches XBRL taxonomy concepts by local name
func (h *Handler) SearchConcepts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := searchConceptsArgs{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
	}

	if args.Query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit, err := validateLimit(args.Limit, 20)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	body, err := h.callWithAuth(ctx, func(token *oauth2.Token) ([]byte, error) {
		return h.client.SearchConcepts(ctx, token, xbrl.ConceptQuery{Name: args.Query, Limit: limit})
	})
	if err != nil {
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}

	var results []ConceptInfo
	gjson.GetBytes(body, "data").ForEach(func(_, row gjson.Result) bool {
		results = append(results, ConceptInfo{
			LocalName:   row.Get(`concept\.local-name`).String(),
			Namespace:   row.Get(`concept\.namespace`).String(),
			BalanceType: row.Get(`concept\.balance-type`).String(),
			DataType:    row.Get(`concept\.datatype`).String(),
			PeriodType:  row.Get(`concept\.period-type`).String(),
		})
		return true
	})

	return mcp.NewToolResultStructuredOnly(results), nil
}
