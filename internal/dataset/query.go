package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/divyagonja/phoenixing/api/schemas"
	"github.com/divyagonja/phoenixing/internal/config"
)

// RowSource is the slice of the record store the query layer needs.
type RowSource interface {
	CountFiltered(ctx context.Context, filter Filter) (int64, error)
	FetchRows(ctx context.Context, filter Filter, limit, offset int64) ([]schemas.Row, error)
}

// Query is the safety-bounded pagination layer over the record store. It
// holds no mutable state between calls. Every failure mode comes back as a
// QueryResult with Success=false; callers never see a Go error, because these
// are UI-facing paths expected to degrade gracefully.
type Query struct {
	source RowSource
	cfg    config.RecordStoreConfig
	log    *zap.Logger
}

// NewQuery creates the pagination layer.
func NewQuery(source RowSource, cfg config.RecordStoreConfig, logger *zap.Logger) *Query {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 100
	}
	if cfg.MaxSafePage <= 0 {
		cfg.MaxSafePage = 10000
	}
	return &Query{
		source: source,
		cfg:    cfg,
		log:    logger.Named("query"),
	}
}

// Fetch returns one page of the dataset under the given filter. perPage <= 0
// selects the configured default page size.
func (q *Query) Fetch(ctx context.Context, filter Filter, page, perPage int) schemas.QueryResult {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = q.cfg.PerPage
	}

	result := schemas.QueryResult{
		Data:        []schemas.Row{},
		Columns:     []string{},
		CurrentPage: page,
		PerPage:     perPage,
		IsFiltered:  !filter.IsZero(),
	}
	switch {
	case filter.Bucket != "":
		result.FilterType = "risk"
		result.FilterValue = string(filter.Bucket)
	case filter.Search != "":
		result.FilterType = "search"
		result.FilterValue = filter.Search
	}

	filteredCount, err := q.source.CountFiltered(ctx, filter)
	if err != nil {
		if errors.Is(err, ErrNoRiskColumn) {
			result.Error = "Risk data unavailable: no risk column is configured."
			return result
		}
		q.log.Warn("Filtered count failed", zap.Error(err))
		result.Error = fmt.Sprintf("Query error: %v", err)
		return result
	}
	result.TotalRows = filteredCount

	// Deep-offset safety ceiling: beyond maxSafePage the store would have to
	// skip past millions of rows per request. Refuse with guidance instead
	// of timing out.
	maxSafePage := q.cfg.MaxSafePage
	safeCap := int64(maxSafePage) * int64(perPage)
	if filteredCount > safeCap && page > maxSafePage {
		result.TotalPages = maxSafePage
		result.MaxSafePage = maxSafePage
		result.Error = fmt.Sprintf(
			"Page %d exceeds the safe limit. Your filter returned %d records; the maximum safe page is %d (first %d records). Please refine your search criteria.",
			page, filteredCount, maxSafePage, safeCap)
		return result
	}

	effectiveCount := filteredCount
	if filteredCount > safeCap {
		result.IsLimited = true
		result.MaxSafePage = maxSafePage
		result.TotalPages = maxSafePage
		effectiveCount = safeCap
		q.log.Info("Large filtered dataset, limiting reachable range",
			zap.Int64("filtered_count", filteredCount),
			zap.Int64("effective_count", safeCap),
		)
	} else if filteredCount > 0 {
		result.TotalPages = int((filteredCount + int64(perPage) - 1) / int64(perPage))
	} else {
		result.TotalPages = 1
	}

	offset := int64(page-1) * int64(perPage)
	rows, err := q.source.FetchRows(ctx, filter, int64(perPage), offset)
	if err != nil {
		q.log.Warn("Row fetch failed", zap.Error(err))
		return schemas.QueryResult{
			Data:        []schemas.Row{},
			Columns:     []string{},
			CurrentPage: page,
			PerPage:     perPage,
			Error:       fmt.Sprintf("Query error: %v", err),
		}
	}

	result.Success = true
	result.Data = rows
	result.Columns = columnsOf(rows)
	if filteredCount > 0 {
		result.ShowingFrom = offset + 1
		result.ShowingTo = min(offset+int64(perPage), effectiveCount)
	}
	return result
}

// columnsOf derives a stable column ordering from the first returned row.
// The store's rows are schemaless maps, so alphabetical order is the only
// deterministic choice.
func columnsOf(rows []schemas.Row) []string {
	if len(rows) == 0 {
		return []string{}
	}
	columns := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
