package schemas

import "time"

// -- Record Store / Dataset Schemas --

// RiskBucket is the dataset-level risk classification used for filtering the
// bulk company dataset. It is distinct from the per-scan RiskLevel.
type RiskBucket string

// Constants for the supported risk buckets.
const (
	BucketHigh   RiskBucket = "high"
	BucketMedium RiskBucket = "medium"
	BucketLow    RiskBucket = "low"
)

// ParseRiskBucket validates a user-supplied bucket string. The boolean is
// false for anything outside the closed set, including the empty string.
func ParseRiskBucket(s string) (RiskBucket, bool) {
	switch RiskBucket(s) {
	case BucketHigh, BucketMedium, BucketLow:
		return RiskBucket(s), true
	}
	return "", false
}

// RiskStats holds the per-bucket record counts for the dashboard. The struct
// is replaced wholesale on every cache refresh, never partially mutated.
type RiskStats struct {
	High   int64 `json:"high"`
	Medium int64 `json:"medium"`
	Low    int64 `json:"low"`
	All    int64 `json:"all"`

	RefreshedAt time.Time `json:"refreshed_at"`
}

// Row is one record from the bulk dataset. The store's column set is not
// fixed at compile time, so rows stay schemaless here and the Columns field
// of QueryResult carries the ordering.
type Row map[string]any

// QueryResult is the value returned for every paginated dataset query.
// Failures are reported in-band through Success and Error rather than as Go
// errors, because the consumers are UI-facing paths that must degrade
// gracefully.
type QueryResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Data    []Row    `json:"data"`
	Columns []string `json:"columns"`

	TotalRows   int64 `json:"total_rows"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPages  int   `json:"total_pages"`

	// ShowingFrom/ShowingTo are the 1-based display range of the returned
	// page within the effective (safety-capped) result set.
	ShowingFrom int64 `json:"showing_from"`
	ShowingTo   int64 `json:"showing_to"`

	IsFiltered  bool   `json:"is_filtered"`
	FilterType  string `json:"filter_type,omitempty"`  // "risk" or "search".
	FilterValue string `json:"filter_value,omitempty"`

	// IsLimited is set when the filtered count exceeds the deep-offset
	// safety ceiling and only the first MaxSafePage pages are reachable.
	IsLimited   bool `json:"is_limited"`
	MaxSafePage int  `json:"max_safe_page,omitempty"`
}
