package scraper

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"rsewatch/internal/browser"
	"rsewatch/internal/config"
	"rsewatch/internal/extractor"
	"rsewatch/internal/model"
	"rsewatch/internal/normalizer"
	"rsewatch/internal/reconciler"
	"rsewatch/internal/store"
)

// RowSource is the extractor surface one run consumes: activate a
// section, then read its raw rows. The real implementation is
// extractor.Extractor over a live browser session.
type RowSource interface {
	ActivateSection(sec config.SectionConfig) error
	ReadRows(rowSelector string, timeout time.Duration) ([]model.RawRow, error)
}

// Runner executes one full extraction→normalization→reconciliation run.
// Each run owns its own browser session and its own store transaction;
// both are released before the run returns, whatever the outcome.
type Runner struct {
	cfg   *config.Config
	store *store.Store
}

func NewRunner(cfg *config.Config, st *store.Store) *Runner {
	return &Runner{cfg: cfg, store: st}
}

// Run performs one scrape. Section-level failures (missing tab, rows
// never appearing) are logged and skipped so the other sections still
// commit; only unanticipated errors abort the run, in which case
// nothing from it is persisted and a page snapshot is written for
// offline diagnosis.
func (r *Runner) Run(ctx context.Context) (err error) {
	log.Println("[INFO] starting scrape run")

	sess, err := browser.NewSession(ctx, r.cfg)
	if err != nil {
		return fmt.Errorf("acquire browser session: %w", err)
	}
	defer sess.Close()
	defer func() {
		if err != nil {
			r.snapshot(sess)
		}
	}()

	if err = sess.Navigate(r.cfg.Source.URL); err != nil {
		return err
	}

	err = r.scrape(extractor.New(sess, r.cfg.SettleDelay()))
	return err
}

// scrape merges every readable section into storage within a single
// run transaction. Sections are processed strictly in order; a section
// whose extraction fails is skipped, merge failures abort the run.
func (r *Runner) scrape(src RowSource) error {
	tx, err := r.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // no-op after Commit

	now := time.Now().UTC()

	// Equities, tab 1: active on page load, no activation needed.
	if rows, rerr := r.sectionRows(src, r.cfg.Sections.Equities); rerr != nil {
		log.Printf("[ERROR] equities section skipped: %v", rerr)
	} else {
		candidates := normalizeRows(rows, r.cfg.Sections.Equities.Columns, "equity", normalizer.Equity)
		res, merr := reconciler.MergeEquities(tx, candidates, now)
		if merr != nil {
			return fmt.Errorf("merge equities: %w", merr)
		}
		log.Printf("[INFO] equities: %d rows, %s", len(rows), res)
	}

	// Market statistics, tab 2.
	if rows, rerr := r.sectionRows(src, r.cfg.Sections.Stats); rerr != nil {
		log.Printf("[ERROR] market stats section skipped: %v", rerr)
	} else {
		candidates := normalizeRows(rows, r.cfg.Sections.Stats.Columns, "market stat", normalizer.MarketStat)
		res, merr := reconciler.MergeStats(tx, candidates, now)
		if merr != nil {
			return fmt.Errorf("merge stats: %w", merr)
		}
		log.Printf("[INFO] market stats: %d rows, %s", len(rows), res)
	}

	// Bonds, tab 5.
	if rows, rerr := r.sectionRows(src, r.cfg.Sections.Bonds); rerr != nil {
		log.Printf("[ERROR] bonds section skipped: %v", rerr)
	} else {
		candidates := normalizeRows(rows, r.cfg.Sections.Bonds.Columns, "bond", normalizer.Bond)
		res, merr := reconciler.MergeBonds(tx, candidates, now)
		if merr != nil {
			return fmt.Errorf("merge bonds: %w", merr)
		}
		log.Printf("[INFO] bonds: %d rows, %s", len(rows), res)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	log.Println("[INFO] scrape run committed")
	return nil
}

// sectionRows activates a section (when it has a tab control) and reads
// its raw rows.
func (r *Runner) sectionRows(src RowSource, sec config.SectionConfig) ([]model.RawRow, error) {
	if err := src.ActivateSection(sec); err != nil {
		return nil, err
	}
	return src.ReadRows(sec.Rows, r.cfg.RowTimeout())
}

// normalizeRows runs a pure per-row normalizer over a section, logging
// skips and degraded fields. A bad row never takes the rest of the
// section with it.
func normalizeRows[T any](rows []model.RawRow, cols map[string]int, kind string,
	fn func(model.RawRow, map[string]int) (*T, normalizer.RowResult)) []*T {

	var out []*T
	for i, row := range rows {
		candidate, res := fn(row, cols)
		if res.Skipped {
			log.Printf("[WARN] %s row %d skipped: %s", kind, i, res.Reason)
			continue
		}
		for _, field := range res.Degraded {
			log.Printf("[WARN] %s row %d: %s fell back to default", kind, i, field)
		}
		out = append(out, candidate)
	}
	return out
}

// snapshot writes the current page source next to the database for
// offline diagnosis. Best effort: its own failure must not mask the
// run's error.
func (r *Runner) snapshot(sess *browser.Session) {
	html, err := sess.HTML()
	if err != nil {
		log.Printf("[WARN] debug snapshot capture failed: %v", err)
		return
	}
	if err := os.WriteFile(r.cfg.Debug.SnapshotPath, []byte(html), 0o644); err != nil {
		log.Printf("[WARN] debug snapshot write failed: %v", err)
		return
	}
	log.Printf("[INFO] debug snapshot saved: %s", r.cfg.Debug.SnapshotPath)
}
