// Package dataset serves the bulk company dataset: a record store holding
// millions of rows, reached through a PostgREST-style HTTP API. Filtering
// always happens store-side; this package never pulls the full table. It also
// owns the risk-statistics cache and the safety-bounded pagination layer.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/divyagonja/phoenixing/api/schemas"
	"github.com/divyagonja/phoenixing/internal/config"
	"github.com/divyagonja/phoenixing/internal/network"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoRiskColumn is returned for bucket-filtered operations when no risk
// column is configured. The caller treats it as "no risk data available"
// rather than guessing a column at runtime.
var ErrNoRiskColumn = errors.New("no risk column configured")

// Filter selects a slice of the dataset. Bucket and Search are mutually
// exclusive; the zero Filter selects everything.
type Filter struct {
	Bucket schemas.RiskBucket
	Search string
}

// IsZero reports whether the filter selects the whole dataset.
func (f Filter) IsZero() bool { return f.Bucket == "" && f.Search == "" }

// bucketValues maps each risk bucket onto the set of raw column values that
// belong to it. The dataset mixes casings, and "Critical" rows live in the
// high bucket.
var bucketValues = map[schemas.RiskBucket][]string{
	schemas.BucketHigh:   {"High", "high", "HIGH", "Critical", "critical", "CRITICAL"},
	schemas.BucketMedium: {"Medium", "medium", "MEDIUM"},
	schemas.BucketLow:    {"Low", "low", "LOW"},
}

// Store is the HTTP client for the record store. It is safe for concurrent
// use and holds no mutable state between calls.
type Store struct {
	cfg        config.RecordStoreConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewStore creates a record store client. A nil httpClient gets the shared
// tuned default.
func NewStore(cfg config.RecordStoreConfig, httpClient *http.Client, logger *zap.Logger) *Store {
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
	return &Store{
		cfg:        cfg,
		httpClient: httpClient,
		log:        logger.Named("recordstore"),
	}
}

// CountAll returns the exact number of rows in the dataset.
func (s *Store) CountAll(ctx context.Context) (int64, error) {
	_, total, err := s.query(ctx, nil, 1, 0)
	return total, err
}

// CountBucket returns the exact number of rows in one risk bucket.
func (s *Store) CountBucket(ctx context.Context, bucket schemas.RiskBucket) (int64, error) {
	params, err := s.filterParams(Filter{Bucket: bucket})
	if err != nil {
		return 0, err
	}
	_, total, err := s.query(ctx, params, 1, 0)
	return total, err
}

// CountFiltered returns the exact number of rows matching the filter.
func (s *Store) CountFiltered(ctx context.Context, filter Filter) (int64, error) {
	params, err := s.filterParams(filter)
	if err != nil {
		return 0, err
	}
	_, total, err := s.query(ctx, params, 1, 0)
	return total, err
}

// FetchRows fetches exactly one page of rows matching the filter.
func (s *Store) FetchRows(ctx context.Context, filter Filter, limit, offset int64) ([]schemas.Row, error) {
	params, err := s.filterParams(filter)
	if err != nil {
		return nil, err
	}
	rows, _, err := s.query(ctx, params, limit, offset)
	return rows, err
}

// filterParams translates a Filter into store-side query predicates.
func (s *Store) filterParams(filter Filter) ([][2]string, error) {
	switch {
	case filter.Bucket != "":
		if s.cfg.RiskColumn == "" {
			return nil, ErrNoRiskColumn
		}
		values, ok := bucketValues[filter.Bucket]
		if !ok {
			return nil, fmt.Errorf("unknown risk bucket %q", filter.Bucket)
		}
		predicate := "in.(" + strings.Join(values, ",") + ")"
		return [][2]string{{s.cfg.RiskColumn, predicate}}, nil

	case filter.Search != "":
		// Case-insensitive substring match across the configured bounded
		// column set, as a single OR predicate evaluated by the store.
		if len(s.cfg.SearchColumns) == 0 {
			return nil, fmt.Errorf("no search columns configured")
		}
		clauses := make([]string, 0, len(s.cfg.SearchColumns))
		for _, col := range s.cfg.SearchColumns {
			clauses = append(clauses, col+".ilike.*"+filter.Search+"*")
		}
		return [][2]string{{"or", "(" + strings.Join(clauses, ",") + ")"}}, nil

	default:
		return nil, nil
	}
}

// query performs one GET against the store with count=exact, returning the
// decoded rows and the total row count parsed from the Content-Range header.
func (s *Store) query(ctx context.Context, filters [][2]string, limit, offset int64) ([]schemas.Row, int64, error) {
	values := url.Values{}
	values.Set("select", "*")
	for _, f := range filters {
		values.Set(f[0], f[1])
	}
	values.Set("limit", strconv.FormatInt(limit, 10))
	if offset > 0 {
		values.Set("offset", strconv.FormatInt(offset, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("record store: %w", err)
	}
	req.Header.Set("apikey", s.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "count=exact")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("record store: %w", err)
	}
	defer resp.Body.Close()

	// The store answers 200 for whole results and 206 for ranged ones.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, fmt.Errorf("record store: HTTP %d: %s", resp.StatusCode, string(body))
	}

	total, err := parseContentRangeTotal(resp.Header.Get("Content-Range"))
	if err != nil {
		return nil, 0, fmt.Errorf("record store: %w", err)
	}

	var rows []schemas.Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, 0, fmt.Errorf("record store: decoding rows: %w", err)
	}
	return rows, total, nil
}

// parseContentRangeTotal extracts the exact total from a Content-Range header
// of the form "lo-hi/total" (or "*/total" for empty ranges).
func parseContentRangeTotal(header string) (int64, error) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return 0, fmt.Errorf("malformed Content-Range header %q", header)
	}
	totalPart := header[idx+1:]
	if totalPart == "*" {
		return 0, fmt.Errorf("store did not report an exact count in %q", header)
	}
	total, err := strconv.ParseInt(totalPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed Content-Range header %q", header)
	}
	return total, nil
}
