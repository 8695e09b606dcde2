package schemas

import (
	"strings"
	"time"
)

// -- Company Registry Schemas --

// CompanyStatus is the closed set of registry statuses this application
// understands. Upstream sends free-form strings; anything outside the known
// set is normalized to StatusOther at the decoding boundary so the scoring
// rules never do raw string comparisons against unvetted input.
type CompanyStatus string

// Constants defining the recognized company statuses.
const (
	StatusActive                CompanyStatus = "active"
	StatusDissolved             CompanyStatus = "dissolved"
	StatusLiquidation           CompanyStatus = "liquidation"
	StatusInsolvencyProceedings CompanyStatus = "insolvency-proceedings"
	StatusReceivership          CompanyStatus = "receivership"
	StatusAdministration        CompanyStatus = "administration"
	StatusOther                 CompanyStatus = "other"
)

// ParseCompanyStatus maps an upstream status string onto the closed enum.
// Unknown or empty values become StatusOther.
func ParseCompanyStatus(s string) CompanyStatus {
	switch CompanyStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive
	case StatusDissolved:
		return StatusDissolved
	case StatusLiquidation:
		return StatusLiquidation
	case StatusInsolvencyProceedings:
		return StatusInsolvencyProceedings
	case StatusReceivership:
		return StatusReceivership
	case StatusAdministration:
		return StatusAdministration
	default:
		return StatusOther
	}
}

// Suspicious reports whether the status indicates a failed or failing company.
func (s CompanyStatus) Suspicious() bool {
	switch s {
	case StatusDissolved, StatusLiquidation, StatusInsolvencyProceedings,
		StatusReceivership, StatusAdministration:
		return true
	}
	return false
}

// Address is the registered office address of a company. All fields are
// optional; the upstream registry omits whatever it does not hold.
type Address struct {
	Line1      string `json:"address_line_1"`
	Line2      string `json:"address_line_2"`
	Locality   string `json:"locality"`
	PostalCode string `json:"postal_code"`
}

// OneLine flattens the address into a single search string, skipping missing
// fields and joining the rest with single spaces.
func (a Address) OneLine() string {
	parts := make([]string, 0, 4)
	for _, f := range []string{a.Line1, a.Line2, a.Locality, a.PostalCode} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// CompanyProfile is the immutable snapshot of a company fetched once per scan.
type CompanyProfile struct {
	CompanyNumber  string        `json:"company_number"`
	CompanyName    string        `json:"company_name"`
	Status         CompanyStatus `json:"company_status"`
	Type           string        `json:"type"`
	DateOfCreation string        `json:"date_of_creation"` // ISO date string as delivered upstream.
	Address        *Address      `json:"registered_office_address,omitempty"`
}

// DiscoveryMethod records how a linked company entered the report.
type DiscoveryMethod string

// Constants for the supported discovery methods.
const (
	FoundByOfficer DiscoveryMethod = "officer"
	FoundByName    DiscoveryMethod = "name"
	FoundByAddress DiscoveryMethod = "address"
)

// LinkedCompany is a company associated with the scan subject, either through
// an officer's name search or through the subject's own name/address searches.
type LinkedCompany struct {
	CompanyNumber  string          `json:"company_number"`
	Title          string          `json:"title"`
	Status         CompanyStatus   `json:"company_status"`
	DateOfCreation string          `json:"date_of_creation"`
	FoundBy        DiscoveryMethod `json:"found_by"`
}

// Officer is a director or secretary of the scanned company, together with
// the link counters accumulated while scanning companies that share the
// officer's name.
type Officer struct {
	Name        string `json:"name"`
	Role        string `json:"officer_role"`
	AppointedOn string `json:"appointed_on"`
	ResignedOn  string `json:"resigned_on"`

	LinkedCompanies []LinkedCompany `json:"linked_companies"`

	// DissolvedLinks counts linked companies with status "dissolved".
	DissolvedLinks int `json:"dissolved_links"`
	// LiquidationLinks counts linked companies in liquidation or
	// insolvency proceedings.
	LiquidationLinks int `json:"liquidation_links"`
	// RecentFormations counts linked companies created within the last
	// 730 days of the scan.
	RecentFormations int `json:"recent_formations"`
}

// Filing is a single entry in the company's filing history.
type Filing struct {
	TransactionID string `json:"transaction_id"`
	Category      string `json:"category"`
	Type          string `json:"type"`
	Date          string `json:"date"`
	Description   string `json:"description"`
}

// PersonWithControl is a person with significant control over the company.
type PersonWithControl struct {
	Name             string   `json:"name"`
	Kind             string   `json:"kind"`
	NotifiedOn       string   `json:"notified_on"`
	CeasedOn         string   `json:"ceased_on"`
	NaturesOfControl []string `json:"natures_of_control"`
}

// Charge is a registered charge (mortgage) against the company.
type Charge struct {
	ChargeCode  string `json:"charge_code"`
	Status      string `json:"status"`
	CreatedOn   string `json:"created_on"`
	Description string `json:"classification_description"`
}

// InsolvencyCase is a single case within the company's insolvency record.
type InsolvencyCase struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

// InsolvencyRecord is the company's insolvency history. A nil record on the
// Report means the registry holds no insolvency data for the company.
type InsolvencyRecord struct {
	Cases []InsolvencyCase `json:"cases"`
}

// -- Risk Schemas --

// IndicatorKind categorizes a risk indicator.
type IndicatorKind string

// Constants for the indicator kinds produced by the scorer.
const (
	IndicatorCompanyStatus      IndicatorKind = "company_status"
	IndicatorNameSimilarity     IndicatorKind = "name_similarity"
	IndicatorHighNameSimilarity IndicatorKind = "high_name_similarity"
	IndicatorNameRecycling      IndicatorKind = "name_recycling"
	IndicatorSerialDissolutions IndicatorKind = "serial_dissolutions"
	IndicatorLiquidationPattern IndicatorKind = "liquidation_pattern"
)

// IndicatorSeverity grades an indicator. The scorer only emits the three
// levels below; there is deliberately no "low" ceiling entry because every
// rule that fires represents at least a medium signal.
type IndicatorSeverity string

// Constants for indicator severities.
const (
	IndicatorMedium   IndicatorSeverity = "medium"
	IndicatorHigh     IndicatorSeverity = "high"
	IndicatorCritical IndicatorSeverity = "critical"
)

// Indicator is one human-readable risk signal. The indicator list on a Report
// is append-only; entries are never mutated after creation.
type Indicator struct {
	Kind        IndicatorKind     `json:"type"`
	Severity    IndicatorSeverity `json:"severity"`
	Description string            `json:"description"`
}

// RiskLevel is the coarse classification derived from the numeric risk score.
type RiskLevel string

// Constants for the risk levels, ordered from least to most severe.
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Report is the aggregated result of one deep scan. It is created empty,
// populated by the scan orchestrator and finalized exactly once by the risk
// scorer; afterwards it is immutable.
type Report struct {
	ScanID      string    `json:"scan_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Company          CompanyProfile      `json:"company"`
	Officers         []Officer           `json:"officers"`
	FilingHistory    []Filing            `json:"filing_history"`
	PSC              []PersonWithControl `json:"psc"`
	Charges          []Charge            `json:"charges"`
	Insolvency       *InsolvencyRecord   `json:"insolvency"`
	SimilarCompanies []LinkedCompany     `json:"similar_companies"`

	Indicators []Indicator `json:"phoenix_indicators"`

	RiskScore         int       `json:"risk_score"`         // Clamped to [0,100].
	RiskLevel         RiskLevel `json:"risk_level"`
	IsPhoenix         bool      `json:"is_phoenix"`
	PhoenixConfidence int       `json:"phoenix_confidence"` // Clamped to [0,100].
	PhoenixReasons    []string  `json:"phoenix_reasons"`
}

// NewReport creates an empty report with every slice initialized, so facets
// that fail to load still serialize as empty arrays rather than null.
func NewReport(scanID string, generatedAt time.Time) *Report {
	return &Report{
		ScanID:           scanID,
		GeneratedAt:      generatedAt,
		Officers:         []Officer{},
		FilingHistory:    []Filing{},
		PSC:              []PersonWithControl{},
		Charges:          []Charge{},
		SimilarCompanies: []LinkedCompany{},
		Indicators:       []Indicator{},
		PhoenixReasons:   []string{},
	}
}
