// Package registry is a thin, timeout-bounded client for the company registry
// API. It normalizes transport and status failures into the uniform Error
// shape and never retries internally; retry policy belongs to callers.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/divyagonja/phoenixing/api/schemas"
	"github.com/divyagonja/phoenixing/internal/config"
	"github.com/divyagonja/phoenixing/internal/network"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// searchPageSize is the items_per_page sent on every listing/search request.
const searchPageSize = 100

// Client talks to the company registry. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewClient creates a registry client. A nil httpClient gets the shared tuned
// default. The configured rate limit guards every outbound request, including
// the fan-out searches issued during a deep scan.
func NewClient(cfg config.RegistryConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		clientCfg := network.NewDefaultClientConfig()
		if cfg.RequestTimeout > 0 {
			clientCfg.RequestTimeout = cfg.RequestTimeout
		}
		clientCfg.Logger = logger
		httpClient = network.NewClient(clientCfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		log:        logger.Named("registry"),
	}
}

// -- Wire types --
// Upstream statuses arrive as free-form strings and are normalized onto the
// closed schema enums here, at the boundary.

type profileWire struct {
	CompanyNumber  string           `json:"company_number"`
	CompanyName    string           `json:"company_name"`
	CompanyStatus  string           `json:"company_status"`
	Type           string           `json:"type"`
	DateOfCreation string           `json:"date_of_creation"`
	Address        *schemas.Address `json:"registered_office_address"`
}

type officerWire struct {
	Name        string `json:"name"`
	OfficerRole string `json:"officer_role"`
	AppointedOn string `json:"appointed_on"`
	ResignedOn  string `json:"resigned_on"`
}

type searchItemWire struct {
	CompanyNumber  string `json:"company_number"`
	Title          string `json:"title"`
	CompanyStatus  string `json:"company_status"`
	DateOfCreation string `json:"date_of_creation"`
}

type itemsWire[T any] struct {
	Items []T `json:"items"`
}

// Profile fetches the company's registry snapshot.
func (c *Client) Profile(ctx context.Context, companyNumber string) (*schemas.CompanyProfile, error) {
	var wire profileWire
	endpoint := "/company/" + url.PathEscape(companyNumber)
	if err := c.get(ctx, endpoint, &wire); err != nil {
		return nil, err
	}
	return &schemas.CompanyProfile{
		CompanyNumber:  wire.CompanyNumber,
		CompanyName:    wire.CompanyName,
		Status:         schemas.ParseCompanyStatus(wire.CompanyStatus),
		Type:           wire.Type,
		DateOfCreation: wire.DateOfCreation,
		Address:        wire.Address,
	}, nil
}

// Officers lists the company's officers. Linked-company counters start at
// zero; the scan orchestrator fills them in.
func (c *Client) Officers(ctx context.Context, companyNumber string) ([]schemas.Officer, error) {
	var wire itemsWire[officerWire]
	endpoint := "/company/" + url.PathEscape(companyNumber) + "/officers"
	if err := c.get(ctx, endpoint, &wire); err != nil {
		return nil, err
	}
	officers := make([]schemas.Officer, 0, len(wire.Items))
	for _, o := range wire.Items {
		officers = append(officers, schemas.Officer{
			Name:            o.Name,
			Role:            o.OfficerRole,
			AppointedOn:     o.AppointedOn,
			ResignedOn:      o.ResignedOn,
			LinkedCompanies: []schemas.LinkedCompany{},
		})
	}
	return officers, nil
}

// FilingHistory lists the company's filing history.
func (c *Client) FilingHistory(ctx context.Context, companyNumber string) ([]schemas.Filing, error) {
	var wire itemsWire[schemas.Filing]
	endpoint := fmt.Sprintf("/company/%s/filing-history?items_per_page=%d",
		url.PathEscape(companyNumber), searchPageSize)
	if err := c.get(ctx, endpoint, &wire); err != nil {
		return nil, err
	}
	return wire.Items, nil
}

// PSC lists the company's persons with significant control.
func (c *Client) PSC(ctx context.Context, companyNumber string) ([]schemas.PersonWithControl, error) {
	var wire itemsWire[schemas.PersonWithControl]
	endpoint := "/company/" + url.PathEscape(companyNumber) + "/persons-with-significant-control"
	if err := c.get(ctx, endpoint, &wire); err != nil {
		return nil, err
	}
	return wire.Items, nil
}

// Charges lists the registered charges against the company.
func (c *Client) Charges(ctx context.Context, companyNumber string) ([]schemas.Charge, error) {
	var wire itemsWire[schemas.Charge]
	endpoint := "/company/" + url.PathEscape(companyNumber) + "/charges"
	if err := c.get(ctx, endpoint, &wire); err != nil {
		return nil, err
	}
	return wire.Items, nil
}

// Insolvency fetches the company's insolvency record. A not-found answer is
// normal for solvent companies and is returned as the typed error; callers
// degrade it to an absent record.
func (c *Client) Insolvency(ctx context.Context, companyNumber string) (*schemas.InsolvencyRecord, error) {
	var record schemas.InsolvencyRecord
	endpoint := "/company/" + url.PathEscape(companyNumber) + "/insolvency"
	if err := c.get(ctx, endpoint, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SearchCompanies runs a free-text company search. The FoundBy field on the
// returned entries is left unset; the caller records the discovery method.
func (c *Client) SearchCompanies(ctx context.Context, query string) ([]schemas.LinkedCompany, error) {
	var wire itemsWire[searchItemWire]
	endpoint := fmt.Sprintf("/search/companies?q=%s&items_per_page=%d",
		url.QueryEscape(query), searchPageSize)
	if err := c.get(ctx, endpoint, &wire); err != nil {
		return nil, err
	}
	results := make([]schemas.LinkedCompany, 0, len(wire.Items))
	for _, item := range wire.Items {
		results = append(results, schemas.LinkedCompany{
			CompanyNumber:  item.CompanyNumber,
			Title:          item.Title,
			Status:         schemas.ParseCompanyStatus(item.CompanyStatus),
			DateOfCreation: item.DateOfCreation,
		})
	}
	return results, nil
}

// get performs one GET against the registry and decodes the JSON body into
// out. All failure modes collapse into *Error.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	// The registry authenticates with the API key as the Basic username and
	// an empty password.
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return &Error{Kind: KindNotFound, Endpoint: endpoint, Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn("Registry returned an error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return &Error{Kind: KindHTTP, Endpoint: endpoint, Status: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindTransport, Endpoint: endpoint, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
