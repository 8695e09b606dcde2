// Package scan runs the deep scan workflow: it fans out to the company
// registry to collect every facet of a company and its officers, correlates
// the results into a single report and hands it to the risk scorer. The
// orchestrator is injected with the registry through an interface, keeping it
// decoupled and testable.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/divyagonja/phoenixing/api/schemas"
	"github.com/divyagonja/phoenixing/internal/config"
	"github.com/divyagonja/phoenixing/internal/risk"
)

// ErrProfileUnavailable marks the only fatal scan failure: the company
// profile itself could not be fetched. Every other facet degrades to empty.
var ErrProfileUnavailable = errors.New("company profile unavailable")

// RegistryAPI is the slice of the registry client the orchestrator needs.
type RegistryAPI interface {
	Profile(ctx context.Context, companyNumber string) (*schemas.CompanyProfile, error)
	Officers(ctx context.Context, companyNumber string) ([]schemas.Officer, error)
	FilingHistory(ctx context.Context, companyNumber string) ([]schemas.Filing, error)
	PSC(ctx context.Context, companyNumber string) ([]schemas.PersonWithControl, error)
	Charges(ctx context.Context, companyNumber string) ([]schemas.Charge, error)
	Insolvency(ctx context.Context, companyNumber string) (*schemas.InsolvencyRecord, error)
	SearchCompanies(ctx context.Context, query string) ([]schemas.LinkedCompany, error)
}

// Orchestrator manages the lifecycle of a deep scan.
type Orchestrator struct {
	registry RegistryAPI
	cfg      config.ScanConfig
	log      *zap.Logger

	// now is injectable so the recent-formation window is testable.
	now func() time.Time
}

// New creates an Orchestrator with its dependencies.
func New(reg RegistryAPI, cfg config.ScanConfig, logger *zap.Logger) (*Orchestrator, error) {
	if reg == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with a nil registry")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RecentFormationWindowDays <= 0 {
		cfg.RecentFormationWindowDays = 730
	}
	return &Orchestrator{
		registry: reg,
		cfg:      cfg,
		log:      logger.Named("scan"),
		now:      time.Now,
	}, nil
}

// Scan executes a full deep scan of one company and returns the finalized
// report. Only a profile-fetch failure aborts the scan; every other facet is
// best-effort and degrades to an empty list or absent record.
func (o *Orchestrator) Scan(ctx context.Context, companyNumber string) (*schemas.Report, error) {
	scanID := uuid.New().String()
	log := o.log.With(zap.String("scanID", scanID), zap.String("company", companyNumber))
	log.Info("Starting deep scan")

	report := schemas.NewReport(scanID, o.now().UTC())

	// The profile fetch is mandatory and runs first, alone: nothing else is
	// worth requesting for a company that does not resolve.
	profile, err := o.registry.Profile(ctx, companyNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	report.Company = *profile

	// The remaining facets are independent and fetched in parallel. Each
	// failure is logged and swallowed; the report still gets produced.
	var officers []schemas.Officer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		officers = o.fetchOfficers(gctx, log, companyNumber)
		return nil
	})
	g.Go(func() error {
		if filings, err := o.registry.FilingHistory(gctx, companyNumber); err != nil {
			log.Warn("Filing history unavailable", zap.Error(err))
		} else {
			report.FilingHistory = filings
		}
		return nil
	})
	g.Go(func() error {
		if psc, err := o.registry.PSC(gctx, companyNumber); err != nil {
			log.Warn("PSC list unavailable", zap.Error(err))
		} else {
			report.PSC = psc
		}
		return nil
	})
	g.Go(func() error {
		if charges, err := o.registry.Charges(gctx, companyNumber); err != nil {
			log.Warn("Charges unavailable", zap.Error(err))
		} else {
			report.Charges = charges
		}
		return nil
	})
	g.Go(func() error {
		if insolvency, err := o.registry.Insolvency(gctx, companyNumber); err != nil {
			log.Debug("No insolvency record", zap.Error(err))
		} else {
			report.Insolvency = insolvency
		}
		return nil
	})
	g.Wait() //nolint:errcheck // facet fetches never return errors

	// Phase two: per-officer link scans plus the company's own name and
	// address searches, under one bounded-concurrency group. Results land in
	// pre-sized slots so fetch-initiation order, not completion order,
	// decides the final ordering.
	scanned := make([]schemas.Officer, len(officers))
	var byName, byAddress []schemas.LinkedCompany

	sg, sctx := errgroup.WithContext(ctx)
	sg.SetLimit(o.cfg.Concurrency)

	for i, officer := range officers {
		i, officer := i, officer
		sg.Go(func() error {
			scanned[i] = o.scanOfficer(sctx, log, officer)
			return nil
		})
	}
	if report.Company.CompanyName != "" {
		sg.Go(func() error {
			byName = o.searchSimilar(sctx, log, report.Company.CompanyName, schemas.FoundByName)
			return nil
		})
	}
	if report.Company.Address != nil {
		if address := report.Company.Address.OneLine(); address != "" {
			sg.Go(func() error {
				byAddress = o.searchSimilar(sctx, log, address, schemas.FoundByAddress)
				return nil
			})
		}
	}
	sg.Wait() //nolint:errcheck // search tasks never return errors

	report.Officers = scanned
	report.SimilarCompanies = mergeSimilar(companyNumber, byName, byAddress)

	risk.Finalize(report)
	log.Info("Deep scan complete",
		zap.Int("risk_score", report.RiskScore),
		zap.String("risk_level", string(report.RiskLevel)),
		zap.Bool("is_phoenix", report.IsPhoenix),
		zap.Int("officers", len(report.Officers)),
		zap.Int("similar_companies", len(report.SimilarCompanies)),
	)
	return report, nil
}

// fetchOfficers lists the company's officers, degrading to none on failure.
func (o *Orchestrator) fetchOfficers(ctx context.Context, log *zap.Logger, companyNumber string) []schemas.Officer {
	officers, err := o.registry.Officers(ctx, companyNumber)
	if err != nil {
		log.Warn("Officer list unavailable", zap.Error(err))
		return nil
	}
	return officers
}

// scanOfficer searches for companies sharing the officer's name and derives
// the link counters. A failed search leaves the officer with zero counters.
func (o *Orchestrator) scanOfficer(ctx context.Context, log *zap.Logger, officer schemas.Officer) schemas.Officer {
	officer.LinkedCompanies = []schemas.LinkedCompany{}

	results, err := o.registry.SearchCompanies(ctx, officer.Name)
	if err != nil {
		log.Warn("Officer link search failed", zap.String("officer", officer.Name), zap.Error(err))
		return officer
	}

	cutoff := o.now().AddDate(0, 0, -o.cfg.RecentFormationWindowDays)
	for _, linked := range results {
		linked.FoundBy = schemas.FoundByOfficer
		officer.LinkedCompanies = append(officer.LinkedCompanies, linked)

		switch linked.Status {
		case schemas.StatusDissolved:
			officer.DissolvedLinks++
		case schemas.StatusLiquidation, schemas.StatusInsolvencyProceedings:
			officer.LiquidationLinks++
		}

		// Unparseable creation dates are treated as absent, not as errors.
		if created, err := time.Parse("2006-01-02", linked.DateOfCreation); err == nil && created.After(cutoff) {
			officer.RecentFormations++
		}
	}
	return officer
}

// searchSimilar runs one company search and tags the results with the
// discovery method. Failures degrade to no results.
func (o *Orchestrator) searchSimilar(ctx context.Context, log *zap.Logger, query string, foundBy schemas.DiscoveryMethod) []schemas.LinkedCompany {
	results, err := o.registry.SearchCompanies(ctx, query)
	if err != nil {
		log.Warn("Similar-company search failed", zap.String("found_by", string(foundBy)), zap.Error(err))
		return nil
	}
	for i := range results {
		results[i].FoundBy = foundBy
	}
	return results
}

// mergeSimilar assembles the similar-companies list: by-name entries first,
// then by-address entries, excluding the scanned company itself and keeping
// each company number exactly once regardless of discovery method.
func mergeSimilar(selfNumber string, byName, byAddress []schemas.LinkedCompany) []schemas.LinkedCompany {
	merged := []schemas.LinkedCompany{}
	seen := map[string]bool{selfNumber: true}
	for _, group := range [][]schemas.LinkedCompany{byName, byAddress} {
		for _, company := range group {
			if seen[company.CompanyNumber] {
				continue
			}
			seen[company.CompanyNumber] = true
			merged = append(merged, company)
		}
	}
	return merged
}
