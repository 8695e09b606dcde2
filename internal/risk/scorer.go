// Package risk turns an aggregated scan report into a bounded risk score, a
// risk level and a phoenixing verdict. Scoring is pure computation over the
// report's facts: no I/O, no clocks, deterministic for identical inputs.
package risk

import (
	"fmt"

	"github.com/divyagonja/phoenixing/api/schemas"
	"github.com/divyagonja/phoenixing/internal/match"
)

// Score contributions and decision thresholds. The similarity thresholds and
// point values encode the phoenixing heuristics; changing any of them shifts
// the meaning of every stored score.
const (
	pointsSuspiciousStatus   = 30
	pointsHighSimilarity     = 25
	pointsModerateSimilarity = 15
	pointsNameRecycling      = 30
	pointsSerialDissolutions = 30
	pointsLiquidationPattern = 40
	pointsPhoenixDirector    = 25
)

const (
	similarityRecycled = 70.0
	similarityHigh     = 85.0

	serialDissolutionThreshold  = 3
	liquidationPatternThreshold = 2
	nameRecyclingThreshold      = 3

	confidencePhoenixDirectors = 40
	confidenceNameRecycling    = 30
	phoenixVerdictThreshold    = 60

	maxScore = 100
)

// Finalize computes and sets the score fields on the report: RiskScore,
// RiskLevel, Indicators, IsPhoenix, PhoenixConfidence and PhoenixReasons.
// Existing score fields are overwritten wholesale, so finalizing twice on the
// same facts yields identical output.
func Finalize(r *schemas.Report) {
	score := 0
	indicators := []schemas.Indicator{}

	// Rule 1: the company's own status.
	if r.Company.Status.Suspicious() {
		score += pointsSuspiciousStatus
		indicators = append(indicators, schemas.Indicator{
			Kind:        schemas.IndicatorCompanyStatus,
			Severity:    schemas.IndicatorHigh,
			Description: fmt.Sprintf("Company status is: %s", r.Company.Status),
		})
	}

	// Rule 2: similarly named dead companies. Matches at or above the
	// recycled threshold also feed the name-recycling pattern below.
	nameRecycled := 0
	for _, similar := range r.SimilarCompanies {
		switch similar.Status {
		case schemas.StatusDissolved, schemas.StatusLiquidation, schemas.StatusInsolvencyProceedings:
		default:
			continue
		}

		similarity := match.Ratio(r.Company.CompanyName, similar.Title)
		if similarity < similarityRecycled {
			continue
		}
		nameRecycled++

		if similarity >= similarityHigh {
			score += pointsHighSimilarity
			indicators = append(indicators, schemas.Indicator{
				Kind:     schemas.IndicatorHighNameSimilarity,
				Severity: schemas.IndicatorHigh,
				Description: fmt.Sprintf("Very similar name to dissolved company: %s (%s) - %.0f%% match",
					similar.Title, similar.CompanyNumber, similarity),
			})
		} else {
			score += pointsModerateSimilarity
			indicators = append(indicators, schemas.Indicator{
				Kind:     schemas.IndicatorNameSimilarity,
				Severity: schemas.IndicatorMedium,
				Description: fmt.Sprintf("Similar name to dissolved company: %s (%s) - %.0f%% match",
					similar.Title, similar.CompanyNumber, similarity),
			})
		}
	}

	// Rule 3: systematic name recycling.
	if nameRecycled >= nameRecyclingThreshold {
		score += pointsNameRecycling
		indicators = append(indicators, schemas.Indicator{
			Kind:        schemas.IndicatorNameRecycling,
			Severity:    schemas.IndicatorCritical,
			Description: fmt.Sprintf("%d dissolved companies with similar names found", nameRecycled),
		})
	}

	// Rule 4: officer histories. A director with at least one dissolution
	// and a recent formation is a phoenix director: scored here, counted for
	// the confidence verdict below.
	phoenixDirectors := 0
	for _, officer := range r.Officers {
		if officer.DissolvedLinks >= serialDissolutionThreshold {
			score += pointsSerialDissolutions
			indicators = append(indicators, schemas.Indicator{
				Kind:        schemas.IndicatorSerialDissolutions,
				Severity:    schemas.IndicatorCritical,
				Description: fmt.Sprintf("%s has %d dissolved companies", officer.Name, officer.DissolvedLinks),
			})
		}
		if officer.LiquidationLinks >= liquidationPatternThreshold {
			score += pointsLiquidationPattern
			indicators = append(indicators, schemas.Indicator{
				Kind:        schemas.IndicatorLiquidationPattern,
				Severity:    schemas.IndicatorCritical,
				Description: fmt.Sprintf("%s linked to %d liquidations", officer.Name, officer.LiquidationLinks),
			})
		}
		if officer.DissolvedLinks >= 1 && officer.RecentFormations >= 1 {
			phoenixDirectors++
			score += pointsPhoenixDirector
		}
	}

	if score > maxScore {
		score = maxScore
	}

	// Phoenix confidence accumulates from the unclamped pattern counts. The
	// verdict check runs after each addition and the confidence is clamped
	// only at the end; the ordering is a compatibility contract with stored
	// historical reports.
	confidence := 0
	isPhoenix := false
	reasons := []string{}

	if phoenixDirectors >= 2 {
		confidence += confidencePhoenixDirectors
		reasons = append(reasons, fmt.Sprintf("%d directors show phoenix patterns", phoenixDirectors))
		isPhoenix = confidence >= phoenixVerdictThreshold
	}
	if nameRecycled >= nameRecyclingThreshold {
		confidence += confidenceNameRecycling
		reasons = append(reasons, fmt.Sprintf("Name recycling: %d similar dissolved companies", nameRecycled))
		isPhoenix = confidence >= phoenixVerdictThreshold
	}
	if confidence > maxScore {
		confidence = maxScore
	}
	if len(reasons) == 0 {
		reasons = []string{"No clear phoenix patterns detected"}
	}

	r.RiskScore = score
	r.RiskLevel = Level(score)
	r.Indicators = indicators
	r.IsPhoenix = isPhoenix
	r.PhoenixConfidence = confidence
	r.PhoenixReasons = reasons
}

// Level maps a clamped risk score onto the coarse risk level.
func Level(score int) schemas.RiskLevel {
	switch {
	case score >= 70:
		return schemas.RiskCritical
	case score >= 50:
		return schemas.RiskHigh
	case score >= 30:
		return schemas.RiskMedium
	default:
		return schemas.RiskLow
	}
}
