// Package pipeline orchestrates the import flow for a mapped table.
//
// Phases:
//  1. Row mapping    – project each row onto canonical columns
//  2. Dedup          – email lookup first, then phone; first match wins
//  3. Insert         – unmatched rows become Active leads
//  4. Bookkeeping    – import log + stats-cache invalidation
//
// The scan is linear and single-threaded; batches are small and the only
// failure semantics are per-row skip counts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kexy2025/leadgen/internal/cache"
	"github.com/kexy2025/leadgen/internal/dedup"
	"github.com/kexy2025/leadgen/internal/domain"
	"github.com/kexy2025/leadgen/internal/ingest"
	"github.com/kexy2025/leadgen/internal/store"
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	dedup.Index
	InsertLead(ctx context.Context, l *domain.Lead) error
	SaveImportLog(ctx context.Context, log *domain.ImportLog) error
}

// Config holds injectable dependencies.
type Config struct {
	Store Store
	Cache *cache.Client
	User  string
}

// Process runs the import for a table whose headers have already been fully
// mapped. headerMap maps original header → canonical column.
func Process(ctx context.Context, tbl *ingest.Table, headerMap map[string]string, cfg Config) (*domain.ImportResult, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline: no store configured")
	}

	// ── Phase 0: resolve header positions once ──────────────────────────────
	type colTarget struct {
		idx       int
		canonical string
	}
	targets := make([]colTarget, 0, len(headerMap))
	for i, h := range tbl.Headers {
		if canonical, ok := headerMap[h]; ok {
			targets = append(targets, colTarget{idx: i, canonical: canonical})
		}
	}

	engine := dedup.NewEngine(cfg.Store)
	result := &domain.ImportResult{
		Status:         "success",
		SourceFile:     tbl.Source,
		TotalProcessed: len(tbl.Rows),
	}

	// ── Phase 1–3: per-row map → dedup → insert ─────────────────────────────
	for _, row := range tbl.Rows {
		lead := &domain.Lead{SourceFile: tbl.Source, Status: domain.StatusActive}
		for _, t := range targets {
			if t.idx < len(row) {
				lead.SetField(t.canonical, row[t.idx])
			}
		}

		email := lead.Email
		phone := lead.MobilePhone
		if phone == "" {
			phone = lead.CompanyPhone
		}

		leadID := dedup.LeadID(email, phone)
		if leadID == "" {
			result.SkippedRows++ // no identifier, nothing to dedup on
			continue
		}

		isDup, err := engine.Check(ctx, email, phone)
		if err != nil {
			return nil, fmt.Errorf("pipeline: dedup check: %w", err)
		}
		if isDup {
			result.DuplicatesSkipped++
			continue
		}

		lead.LeadID = leadID
		lead.EmailNorm = dedup.NormalizeEmail(email)
		lead.PhoneNorm = dedup.NormalizePhone(phone)

		if err := cfg.Store.InsertLead(ctx, lead); err != nil {
			if errors.Is(err, store.ErrDuplicateLead) {
				// Same identifier appeared twice in this batch.
				result.DuplicatesSkipped++
				continue
			}
			return nil, fmt.Errorf("pipeline: insert lead: %w", err)
		}
		result.LeadsAdded++
	}

	if result.TotalProcessed > 0 {
		result.SuccessRate = round1(float64(result.LeadsAdded) / float64(result.TotalProcessed) * 100)
	}

	// ── Phase 4: bookkeeping ─────────────────────────────────────────────────
	user := cfg.User
	if user == "" {
		user = "system"
	}
	if err := cfg.Store.SaveImportLog(ctx, &domain.ImportLog{
		SourceFile:        result.SourceFile,
		TotalProcessed:    result.TotalProcessed,
		LeadsAdded:        result.LeadsAdded,
		DuplicatesSkipped: result.DuplicatesSkipped,
		SkippedRows:       result.SkippedRows,
		SuccessRate:       result.SuccessRate,
		User:              user,
	}); err != nil {
		// The import itself succeeded; losing one log line is not fatal.
		log.Printf("WARN: pipeline: save import log: %v", err)
	}

	if cfg.Cache != nil {
		if err := cfg.Cache.InvalidateStats(ctx); err != nil {
			log.Printf("WARN: pipeline: invalidate stats cache: %v", err)
		}
	}

	return result, nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
