package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/divyagonja/phoenixing/api/schemas"
	"github.com/divyagonja/phoenixing/internal/config"
	"github.com/divyagonja/phoenixing/internal/dataset"
	"github.com/divyagonja/phoenixing/internal/registry"
	"github.com/divyagonja/phoenixing/internal/scan"
)

type fakeScanner struct {
	report *schemas.Report
	err    error
	gotNum string
}

func (f *fakeScanner) Scan(ctx context.Context, companyNumber string) (*schemas.Report, error) {
	f.gotNum = companyNumber
	return f.report, f.err
}

type fakeQuery struct {
	result     schemas.QueryResult
	gotFilter  dataset.Filter
	gotPage    int
	gotPerPage int
}

func (f *fakeQuery) Fetch(ctx context.Context, filter dataset.Filter, page, perPage int) schemas.QueryResult {
	f.gotFilter = filter
	f.gotPage = page
	f.gotPerPage = perPage
	return f.result
}

type fakeStats struct {
	stats schemas.RiskStats
}

func (f *fakeStats) Get(ctx context.Context) schemas.RiskStats { return f.stats }

func newTestServer(scanner Scanner, query DatasetQuery, stats StatsProvider) *Server {
	return New(scanner, query, stats, config.ServerConfig{}, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeScanner{}, &fakeQuery{}, &fakeStats{})

	rec := doRequest(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestStats(t *testing.T) {
	stats := &fakeStats{stats: schemas.RiskStats{
		High:        120,
		Medium:      4500,
		Low:         2_400_000,
		All:         2_404_620,
		RefreshedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}
	s := newTestServer(&fakeScanner{}, &fakeQuery{}, stats)

	rec := doRequest(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[schemas.RiskStats](t, rec)
	assert.Equal(t, stats.stats, got)
}

func TestCompaniesPassesFilterAndPaging(t *testing.T) {
	query := &fakeQuery{result: schemas.QueryResult{Success: true}}
	s := newTestServer(&fakeScanner{}, query, &fakeStats{})

	rec := doRequest(t, s, "/api/companies?risk_filter=high&page=3&per_page=50")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, schemas.BucketHigh, query.gotFilter.Bucket)
	assert.Empty(t, query.gotFilter.Search)
	assert.Equal(t, 3, query.gotPage)
	assert.Equal(t, 50, query.gotPerPage)
}

func TestCompaniesSearch(t *testing.T) {
	query := &fakeQuery{result: schemas.QueryResult{Success: true}}
	s := newTestServer(&fakeScanner{}, query, &fakeStats{})

	rec := doRequest(t, s, "/api/companies?search=phoenix")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "phoenix", query.gotFilter.Search)
}

func TestCompaniesRejectsBadFilters(t *testing.T) {
	testCases := []struct {
		name   string
		target string
	}{
		{name: "unknown bucket", target: "/api/companies?risk_filter=extreme"},
		{name: "combined filters", target: "/api/companies?risk_filter=high&search=phoenix"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeScanner{}, &fakeQuery{}, &fakeStats{})
			rec := doRequest(t, s, tc.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody[map[string]string](t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCompaniesDefaultsBadPaging(t *testing.T) {
	query := &fakeQuery{result: schemas.QueryResult{Success: true}}
	s := newTestServer(&fakeScanner{}, query, &fakeStats{})

	doRequest(t, s, "/api/companies?page=abc&per_page=-5")
	assert.Equal(t, 1, query.gotPage)
	assert.Equal(t, 0, query.gotPerPage, "invalid per_page falls through to the layer default")
}

func TestCompaniesSoftErrorStaysHTTP200(t *testing.T) {
	query := &fakeQuery{result: schemas.QueryResult{
		Success: false,
		Error:   "Risk data unavailable: no risk column is configured.",
		Data:    []schemas.Row{},
	}}
	s := newTestServer(&fakeScanner{}, query, &fakeStats{})

	rec := doRequest(t, s, "/api/companies?risk_filter=low")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[schemas.QueryResult](t, rec)
	assert.False(t, got.Success)
	assert.Contains(t, got.Error, "Risk data unavailable")
}

func TestScanSuccess(t *testing.T) {
	report := schemas.NewReport("scan-1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	report.Company = schemas.CompanyProfile{CompanyNumber: "12345678", CompanyName: "Test Co Ltd"}
	report.RiskLevel = schemas.RiskLow

	scanner := &fakeScanner{report: report}
	s := newTestServer(scanner, &fakeQuery{}, &fakeStats{})

	rec := doRequest(t, s, "/api/scan/12345678")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345678", scanner.gotNum)

	got := decodeBody[schemas.Report](t, rec)
	assert.Equal(t, "scan-1", got.ScanID)
	assert.Equal(t, "Test Co Ltd", got.Company.CompanyName)
}

func TestScanErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "unknown company",
			err:        &registry.Error{Kind: registry.KindNotFound, Endpoint: "/company/x", Status: 404},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "profile unavailable",
			err:        scan.ErrProfileUnavailable,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unexpected failure",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeScanner{err: tc.err}, &fakeQuery{}, &fakeStats{})
			rec := doRequest(t, s, "/api/scan/12345678")

			assert.Equal(t, tc.wantStatus, rec.Code)
			body := decodeBody[map[string]string](t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}
