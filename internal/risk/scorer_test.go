package risk

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divyagonja/phoenixing/api/schemas"
)

func newReport(t *testing.T) *schemas.Report {
	t.Helper()
	r := schemas.NewReport("test-scan", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	r.Company = schemas.CompanyProfile{
		CompanyNumber: "12345678",
		CompanyName:   "Phoenix Trading Ltd",
		Status:        schemas.StatusActive,
	}
	return r
}

func indicatorKinds(r *schemas.Report) []schemas.IndicatorKind {
	kinds := make([]schemas.IndicatorKind, 0, len(r.Indicators))
	for _, ind := range r.Indicators {
		kinds = append(kinds, ind.Kind)
	}
	return kinds
}

func TestFinalizeCleanCompany(t *testing.T) {
	r := newReport(t)
	Finalize(r)

	assert.Equal(t, 0, r.RiskScore)
	assert.Equal(t, schemas.RiskLow, r.RiskLevel)
	assert.Empty(t, r.Indicators)
	assert.False(t, r.IsPhoenix)
	assert.Equal(t, 0, r.PhoenixConfidence)
	assert.Equal(t, []string{"No clear phoenix patterns detected"}, r.PhoenixReasons)
}

func TestFinalizeSuspiciousStatus(t *testing.T) {
	for _, status := range []schemas.CompanyStatus{
		schemas.StatusDissolved,
		schemas.StatusLiquidation,
		schemas.StatusInsolvencyProceedings,
		schemas.StatusReceivership,
		schemas.StatusAdministration,
	} {
		t.Run(string(status), func(t *testing.T) {
			r := newReport(t)
			r.Company.Status = status
			Finalize(r)

			assert.Equal(t, 30, r.RiskScore)
			assert.Equal(t, schemas.RiskMedium, r.RiskLevel)
			require.Len(t, r.Indicators, 1)
			assert.Equal(t, schemas.IndicatorCompanyStatus, r.Indicators[0].Kind)
			assert.Equal(t, schemas.IndicatorHigh, r.Indicators[0].Severity)
		})
	}
}

func TestFinalizeNameSimilarityBands(t *testing.T) {
	testCases := []struct {
		name         string
		similarTitle string
		wantScore    int
		wantKind     schemas.IndicatorKind
		wantSeverity schemas.IndicatorSeverity
	}{
		{
			name:         "exact match scores high band",
			similarTitle: "Phoenix Trading Ltd",
			wantScore:    25,
			wantKind:     schemas.IndicatorHighNameSimilarity,
			wantSeverity: schemas.IndicatorHigh,
		},
		{
			name:         "moderate match scores medium band",
			similarTitle: "Phoenix Trading Ltd And Some Extra",
			wantScore:    15,
			wantKind:     schemas.IndicatorNameSimilarity,
			wantSeverity: schemas.IndicatorMedium,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newReport(t)
			r.SimilarCompanies = []schemas.LinkedCompany{{
				CompanyNumber: "00000001",
				Title:         tc.similarTitle,
				Status:        schemas.StatusDissolved,
			}}
			Finalize(r)

			assert.Equal(t, tc.wantScore, r.RiskScore)
			require.Len(t, r.Indicators, 1)
			assert.Equal(t, tc.wantKind, r.Indicators[0].Kind)
			assert.Equal(t, tc.wantSeverity, r.Indicators[0].Severity)
		})
	}
}

func TestFinalizeIgnoresLiveSimilarCompanies(t *testing.T) {
	r := newReport(t)
	r.SimilarCompanies = []schemas.LinkedCompany{
		{CompanyNumber: "00000001", Title: "Phoenix Trading Ltd", Status: schemas.StatusActive},
		{CompanyNumber: "00000002", Title: "Phoenix Trading Ltd", Status: schemas.StatusOther},
	}
	Finalize(r)

	assert.Equal(t, 0, r.RiskScore)
	assert.Empty(t, r.Indicators)
}

func TestFinalizeNameRecycling(t *testing.T) {
	r := newReport(t)
	for _, num := range []string{"00000001", "00000002", "00000003"} {
		r.SimilarCompanies = append(r.SimilarCompanies, schemas.LinkedCompany{
			CompanyNumber: num,
			Title:         "Phoenix Trading Ltd",
			Status:        schemas.StatusDissolved,
		})
	}
	Finalize(r)

	// Three high-similarity hits plus the recycling pattern, clamped to 100.
	assert.Equal(t, 100, r.RiskScore)
	assert.Equal(t, schemas.RiskCritical, r.RiskLevel)
	assert.Contains(t, indicatorKinds(r), schemas.IndicatorNameRecycling)

	assert.False(t, r.IsPhoenix, "recycling alone stays below the verdict threshold")
	assert.Equal(t, 30, r.PhoenixConfidence)
	require.Len(t, r.PhoenixReasons, 1)
	assert.Contains(t, r.PhoenixReasons[0], "Name recycling")
}

func TestFinalizeOfficerPatterns(t *testing.T) {
	t.Run("serial dissolutions", func(t *testing.T) {
		r := newReport(t)
		r.Officers = []schemas.Officer{{Name: "SMITH, John", DissolvedLinks: 3}}
		Finalize(r)

		// Three dissolutions also make a phoenix check candidate only when
		// paired with a recent formation, so just the serial rule fires.
		assert.Equal(t, 30, r.RiskScore)
		assert.Equal(t, []schemas.IndicatorKind{schemas.IndicatorSerialDissolutions}, indicatorKinds(r))
	})

	t.Run("liquidation pattern", func(t *testing.T) {
		r := newReport(t)
		r.Officers = []schemas.Officer{{Name: "SMITH, John", LiquidationLinks: 2}}
		Finalize(r)

		assert.Equal(t, 40, r.RiskScore)
		assert.Equal(t, []schemas.IndicatorKind{schemas.IndicatorLiquidationPattern}, indicatorKinds(r))
	})

	t.Run("single phoenix director scores without indicator", func(t *testing.T) {
		r := newReport(t)
		r.Officers = []schemas.Officer{{Name: "SMITH, John", DissolvedLinks: 1, RecentFormations: 1}}
		Finalize(r)

		assert.Equal(t, 25, r.RiskScore)
		assert.Empty(t, r.Indicators)
		assert.False(t, r.IsPhoenix)
		assert.Equal(t, 0, r.PhoenixConfidence, "one director is below the confidence threshold")
	})
}

func TestFinalizePhoenixVerdict(t *testing.T) {
	t.Run("two directors alone is not enough", func(t *testing.T) {
		r := newReport(t)
		r.Officers = []schemas.Officer{
			{Name: "SMITH, John", DissolvedLinks: 1, RecentFormations: 1},
			{Name: "JONES, Mary", DissolvedLinks: 2, RecentFormations: 1},
		}
		Finalize(r)

		assert.Equal(t, 40, r.PhoenixConfidence)
		assert.False(t, r.IsPhoenix)
	})

	t.Run("directors plus recycling crosses the threshold", func(t *testing.T) {
		r := newReport(t)
		r.Officers = []schemas.Officer{
			{Name: "SMITH, John", DissolvedLinks: 1, RecentFormations: 1},
			{Name: "JONES, Mary", DissolvedLinks: 1, RecentFormations: 1},
		}
		for _, num := range []string{"00000001", "00000002", "00000003"} {
			r.SimilarCompanies = append(r.SimilarCompanies, schemas.LinkedCompany{
				CompanyNumber: num,
				Title:         "Phoenix Trading Ltd",
				Status:        schemas.StatusDissolved,
			})
		}
		Finalize(r)

		assert.True(t, r.IsPhoenix)
		assert.Equal(t, 70, r.PhoenixConfidence)
		assert.Len(t, r.PhoenixReasons, 2)
	})
}

func TestFinalizeScoreClamped(t *testing.T) {
	r := newReport(t)
	r.Company.Status = schemas.StatusLiquidation
	for i := 0; i < 10; i++ {
		r.Officers = append(r.Officers, schemas.Officer{
			Name:             "SMITH, John",
			DissolvedLinks:   5,
			LiquidationLinks: 5,
			RecentFormations: 2,
		})
	}
	for _, num := range []string{"00000001", "00000002", "00000003"} {
		r.SimilarCompanies = append(r.SimilarCompanies, schemas.LinkedCompany{
			CompanyNumber: num,
			Title:         "Phoenix Trading Ltd",
			Status:        schemas.StatusDissolved,
		})
	}
	Finalize(r)

	assert.Equal(t, 100, r.RiskScore)
	assert.Equal(t, 70, r.PhoenixConfidence)
	assert.Equal(t, schemas.RiskCritical, r.RiskLevel)
	assert.True(t, r.IsPhoenix)
}

func TestFinalizeIdempotent(t *testing.T) {
	r := newReport(t)
	r.Company.Status = schemas.StatusDissolved
	r.Officers = []schemas.Officer{
		{Name: "SMITH, John", DissolvedLinks: 3, RecentFormations: 1},
		{Name: "JONES, Mary", DissolvedLinks: 1, RecentFormations: 1},
	}
	r.SimilarCompanies = []schemas.LinkedCompany{
		{CompanyNumber: "00000001", Title: "Phoenix Trading Ltd", Status: schemas.StatusDissolved},
	}

	Finalize(r)
	first := *r
	Finalize(r)

	if diff := cmp.Diff(first, *r); diff != "" {
		t.Fatalf("second finalize changed the report (-first +second):\n%s", diff)
	}
}

func TestLevel(t *testing.T) {
	testCases := []struct {
		score int
		want  schemas.RiskLevel
	}{
		{0, schemas.RiskLow},
		{29, schemas.RiskLow},
		{30, schemas.RiskMedium},
		{49, schemas.RiskMedium},
		{50, schemas.RiskHigh},
		{69, schemas.RiskHigh},
		{70, schemas.RiskCritical},
		{100, schemas.RiskCritical},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, Level(tc.score), "score %d", tc.score)
	}
}
