package store

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"rsewatch/internal/model"
)

// Store persists market entities to a SQLite database. Writes go through
// a RunTx so one scrape run commits as a single unit; reads serve the
// query layer directly from the latest committed snapshot.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the query layer can read while a run is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS equities (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol        TEXT NOT NULL UNIQUE,
			name          TEXT,
			current_price REAL,
			change        REAL,
			volume        INTEGER DEFAULT 0,
			high          REAL,
			low           REAL,
			updated_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equities_symbol ON equities(symbol)`,

		`CREATE TABLE IF NOT EXISTS price_history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			equity_id INTEGER NOT NULL REFERENCES equities(id),
			price     REAL NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_equity_ts ON price_history(equity_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS market_stats (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			label      TEXT NOT NULL UNIQUE,
			value      TEXT,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS bonds (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			security         TEXT NOT NULL UNIQUE,
			coupon           TEXT,
			maturity         TEXT,
			price            REAL,
			yield_percentage REAL,
			updated_at       INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Begin opens the transaction for one scrape run. Every merge the run
// performs goes through the returned RunTx and becomes visible only on
// Commit.
func (s *Store) Begin() (*RunTx, error) {
	s.mu.Lock()
	tx, err := s.db.Begin()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("begin run transaction: %w", err)
	}
	return &RunTx{tx: tx, store: s}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}

// RunTx is the write scope of a single scrape run.
type RunTx struct {
	tx    *sql.Tx
	store *Store
	done  bool
}

// Commit makes the run's merges visible.
func (t *RunTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.store.mu.Unlock()
	return t.tx.Commit()
}

// Rollback discards the run's merges. Safe to call after Commit.
func (t *RunTx) Rollback() {
	if t.done {
		return
	}
	t.done = true
	defer t.store.mu.Unlock()
	if err := t.tx.Rollback(); err != nil {
		log.Printf("[ERROR] rollback run transaction: %v", err)
	}
}

// FindEquityBySymbol returns the equity with the given symbol, or nil
// when none exists.
func (t *RunTx) FindEquityBySymbol(symbol string) (*model.Equity, error) {
	row := t.tx.QueryRow(`SELECT id, symbol, name, current_price, change, volume, high, low, updated_at
		FROM equities WHERE symbol = ?`, symbol)
	return scanEquity(row)
}

// InsertEquity stores a new equity and fills in its assigned ID.
func (t *RunTx) InsertEquity(e *model.Equity) error {
	res, err := t.tx.Exec(`INSERT INTO equities
		(symbol, name, current_price, change, volume, high, low, updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.Symbol, e.Name, e.CurrentPrice, e.Change, e.Volume,
		nullable(e.High), nullable(e.Low), e.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert equity %s: %w", e.Symbol, err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// UpdateEquity overwrites an existing equity's mutable attributes.
func (t *RunTx) UpdateEquity(e *model.Equity) error {
	_, err := t.tx.Exec(`UPDATE equities
		SET current_price = ?, change = ?, volume = ?, high = ?, low = ?, updated_at = ?
		WHERE id = ?`,
		e.CurrentPrice, e.Change, e.Volume,
		nullable(e.High), nullable(e.Low), e.UpdatedAt.Unix(), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update equity %s: %w", e.Symbol, err)
	}
	return nil
}

// AppendPricePoint adds one immutable history sample for an equity.
func (t *RunTx) AppendPricePoint(equityID int64, price float64, ts time.Time) error {
	_, err := t.tx.Exec(`INSERT INTO price_history (equity_id, price, timestamp) VALUES (?,?,?)`,
		equityID, price, ts.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append price point: %w", err)
	}
	return nil
}

// FindMarketStatByLabel returns the statistic with the given label, or
// nil when none exists.
func (t *RunTx) FindMarketStatByLabel(label string) (*model.MarketStat, error) {
	st := &model.MarketStat{}
	var ts int64
	err := t.tx.QueryRow(`SELECT id, label, value, updated_at FROM market_stats WHERE label = ?`, label).
		Scan(&st.ID, &st.Label, &st.Value, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find stat %q: %w", label, err)
	}
	st.UpdatedAt = time.Unix(ts, 0).UTC()
	return st, nil
}

func (t *RunTx) InsertMarketStat(st *model.MarketStat) error {
	res, err := t.tx.Exec(`INSERT INTO market_stats (label, value, updated_at) VALUES (?,?,?)`,
		st.Label, st.Value, st.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert stat %q: %w", st.Label, err)
	}
	st.ID, err = res.LastInsertId()
	return err
}

func (t *RunTx) UpdateMarketStat(st *model.MarketStat) error {
	_, err := t.tx.Exec(`UPDATE market_stats SET value = ?, updated_at = ? WHERE id = ?`,
		st.Value, st.UpdatedAt.Unix(), st.ID)
	if err != nil {
		return fmt.Errorf("update stat %q: %w", st.Label, err)
	}
	return nil
}

// FindBondBySecurity returns the bond with the given security name, or
// nil when none exists.
func (t *RunTx) FindBondBySecurity(security string) (*model.Bond, error) {
	b := &model.Bond{}
	var ts int64
	err := t.tx.QueryRow(`SELECT id, security, coupon, maturity, price, yield_percentage, updated_at
		FROM bonds WHERE security = ?`, security).
		Scan(&b.ID, &b.Security, &b.Coupon, &b.Maturity, &b.Price, &b.YieldPercentage, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find bond %q: %w", security, err)
	}
	b.UpdatedAt = time.Unix(ts, 0).UTC()
	return b, nil
}

func (t *RunTx) InsertBond(b *model.Bond) error {
	res, err := t.tx.Exec(`INSERT INTO bonds (security, coupon, maturity, price, yield_percentage, updated_at)
		VALUES (?,?,?,?,?,?)`,
		b.Security, b.Coupon, b.Maturity, b.Price, b.YieldPercentage, b.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert bond %q: %w", b.Security, err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

func (t *RunTx) UpdateBond(b *model.Bond) error {
	_, err := t.tx.Exec(`UPDATE bonds
		SET coupon = ?, maturity = ?, price = ?, yield_percentage = ?, updated_at = ?
		WHERE id = ?`,
		b.Coupon, b.Maturity, b.Price, b.YieldPercentage, b.UpdatedAt.Unix(), b.ID)
	if err != nil {
		return fmt.Errorf("update bond %q: %w", b.Security, err)
	}
	return nil
}

// ListEquities returns the latest committed equity snapshots.
func (s *Store) ListEquities() ([]model.Equity, error) {
	rows, err := s.db.Query(`SELECT id, symbol, name, current_price, change, volume, high, low, updated_at
		FROM equities ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list equities: %w", err)
	}
	defer rows.Close()

	var out []model.Equity
	for rows.Next() {
		e, err := scanEquity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// EquityHistory returns an equity's full price history, oldest first.
func (s *Store) EquityHistory(symbol string) ([]model.PricePoint, error) {
	rows, err := s.db.Query(`SELECT h.id, h.equity_id, h.price, h.timestamp
		FROM price_history h JOIN equities e ON e.id = h.equity_id
		WHERE e.symbol = ? ORDER BY h.timestamp, h.id`, symbol)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		var ts int64
		if err := rows.Scan(&p.ID, &p.EquityID, &p.Price, &ts); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		p.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListMarketStats returns the latest committed statistics.
func (s *Store) ListMarketStats() ([]model.MarketStat, error) {
	rows, err := s.db.Query(`SELECT id, label, value, updated_at FROM market_stats ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	defer rows.Close()

	var out []model.MarketStat
	for rows.Next() {
		var st model.MarketStat
		var ts int64
		if err := rows.Scan(&st.ID, &st.Label, &st.Value, &ts); err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		st.UpdatedAt = time.Unix(ts, 0).UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListBonds returns the latest committed bond snapshots.
func (s *Store) ListBonds() ([]model.Bond, error) {
	rows, err := s.db.Query(`SELECT id, security, coupon, maturity, price, yield_percentage, updated_at
		FROM bonds ORDER BY security`)
	if err != nil {
		return nil, fmt.Errorf("list bonds: %w", err)
	}
	defer rows.Close()

	var out []model.Bond
	for rows.Next() {
		var b model.Bond
		var ts int64
		if err := rows.Scan(&b.ID, &b.Security, &b.Coupon, &b.Maturity, &b.Price, &b.YieldPercentage, &ts); err != nil {
			return nil, fmt.Errorf("scan bond: %w", err)
		}
		b.UpdatedAt = time.Unix(ts, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquity(r rowScanner) (*model.Equity, error) {
	e := &model.Equity{}
	var high, low sql.NullFloat64
	var ts int64
	err := r.Scan(&e.ID, &e.Symbol, &e.Name, &e.CurrentPrice, &e.Change, &e.Volume, &high, &low, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan equity: %w", err)
	}
	if high.Valid {
		e.High = &high.Float64
	}
	if low.Valid {
		e.Low = &low.Float64
	}
	e.UpdatedAt = time.Unix(ts, 0).UTC()
	return e, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
