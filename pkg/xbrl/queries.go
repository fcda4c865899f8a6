package xbrl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

// Query endpoints of the XBRL-US API.
const (
	EndpointFactSearch    = "/fact/search"
	EndpointConceptSearch = "/concept/search"
	EndpointEntitySearch  = "/entity/search"
	EndpointReportSearch  = "/report/search"
)

// FactQuery selects financial facts. CIK is required; the remaining filters
// narrow the result set.
type FactQuery struct {
	// CIK is the SEC Central Index Key of the reporting entity.
	CIK string

	// Concept restricts results to a single XBRL concept local name,
	// for example "Assets" or "RevenueFromContractWithCustomerExcludingAssessedTax".
	Concept string

	// Year restricts results to a fiscal year. Zero means no restriction.
	Year int

	// Limit caps the number of returned facts.
	Limit int
}

// SearchFacts queries the fact search endpoint.
func (c *Client) SearchFacts(ctx context.Context, token *oauth2.Token, q FactQuery) ([]byte, error) {
	fields := []string{
		"fact.value",
		"fact.decimals",
		"concept.local-name",
		"entity.name",
		"entity.cik",
		"period.fiscal-year",
		"period.fiscal-period",
		"unit",
		fmt.Sprintf("fact.limit(%d)", q.Limit),
	}

	params := url.Values{}
	params.Set("fields", strings.Join(fields, ","))
	params.Set("entity.cik", NormalizeCIK(q.CIK))
	if q.Concept != "" {
		params.Set("concept.local-name", q.Concept)
	}
	if q.Year != 0 {
		params.Set("period.fiscal-year", strconv.Itoa(q.Year))
	}

	return c.Query(ctx, token, EndpointFactSearch, params)
}

// ConceptQuery selects XBRL concepts by local name.
type ConceptQuery struct {
	// Name is the concept local name to match.
	Name string

	// Limit caps the number of returned concepts.
	Limit int
}

// SearchConcepts queries the concept search endpoint.
func (c *Client) SearchConcepts(ctx context.Context, token *oauth2.Token, q ConceptQuery) ([]byte, error) {
	fields := []string{
		"concept.local-name",
		"concept.namespace",
		"concept.balance-type",
		"concept.datatype",
		"concept.period-type",
		fmt.Sprintf("concept.limit(%d)", q.Limit),
	}

	params := url.Values{}
	params.Set("fields", strings.Join(fields, ","))
	params.Set("concept.local-name", q.Name)

	return c.Query(ctx, token, EndpointConceptSearch, params)
}

// EntityQuery selects reporting entities by name or ticker.
type EntityQuery struct {
	// Name is matched against the entity name and ticker.
	Name string

	// Limit caps the number of returned entities.
	Limit int
}

// SearchEntities queries the entity search endpoint.
func (c *Client) SearchEntities(ctx context.Context, token *oauth2.Token, q EntityQuery) ([]byte, error) {
	fields := []string{
		"entity.cik",
		"entity.name",
		"entity.ticker",
		fmt.Sprintf("entity.limit(%d)", q.Limit),
	}

	params := url.Values{}
	params.Set("fields", strings.Join(fields, ","))
	params.Set("entity.name", q.Name)

	return c.Query(ctx, token, EndpointEntitySearch, params)
}

// FactsByYearQuery selects facts across entities for a fiscal year. This
// backs the year-based company search where no name query is given.
type FactsByYearQuery struct {
	// Year is the fiscal year to search.
	Year int

	// Limit caps the number of returned facts.
	Limit int
}

// SearchFactsByYear queries the fact search endpoint filtered by fiscal year only.
func (c *Client) SearchFactsByYear(ctx context.Context, token *oauth2.Token, q FactsByYearQuery) ([]byte, error) {
	fields := []string{
		"entity.name",
		"entity.cik",
		"period.fiscal-year",
		fmt.Sprintf("fact.limit(%d)", q.Limit),
	}

	params := url.Values{}
	params.Set("fields", strings.Join(fields, ","))
	params.Set("period.fiscal-year", strconv.Itoa(q.Year))

	return c.Query(ctx, token, EndpointFactSearch, params)
}

// ReportQuery selects filed reports for an entity.
type ReportQuery struct {
	// CIK is the SEC Central Index Key of the filing entity.
	CIK string

	// FormType restricts results to a document type, for example "10-K".
	FormType string

	// Year restricts results to a filing year. Zero means no restriction.
	Year int

	// Limit caps the number of returned reports.
	Limit int
}

// SearchReports queries the report search endpoint.
func (c *Client) SearchReports(ctx context.Context, token *oauth2.Token, q ReportQuery) ([]byte, error) {
	fields := []string{
		"report.id",
		"report.entity-name",
		"report.document-type",
		"report.filing-date",
		"report.period-end",
		"report.accession-number",
		fmt.Sprintf("report.limit(%d)", q.Limit),
	}

	params := url.Values{}
	params.Set("fields", strings.Join(fields, ","))
	params.Set("entity.cik", NormalizeCIK(q.CIK))
	if q.FormType != "" {
		params.Set("report.document-type", q.FormType)
	}
	if q.Year != 0 {
		params.Set("report.year", strconv.Itoa(q.Year))
	}

	return c.Query(ctx, token, EndpointReportSearch, params)
}

// NormalizeCIK left-pads a numeric CIK to the 10-digit form the API expects.
// Non-numeric input is returned unchanged; the API rejects it with a
// descriptive error of its own.
func NormalizeCIK(cik string) string {
	trimmed := strings.TrimSpace(cik)
	if trimmed == "" {
		return trimmed
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return trimmed
		}
	}
	if len(trimmed) >= 10 {
		return trimmed
	}
	return strings.Repeat("0", 10-len(trimmed)) + trimmed
}
