// Package auditstore persists analysis audit trails to Postgres, wrapped
// in a circuit breaker so a struggling database degrades analyses
// (audit trail still returned in memory) instead of failing them.
// Grounded on the teacher's internal/infrastructure/db/connection.go
// (sqlx.Open("postgres", dsn), connection-pool tuning, PingContext health
// check) and internal/persistence/postgres/regime_repo.go (context-timeout
// wrapped QueryRowxContext/ExecContext, JSON-encoded payload columns).
package auditstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/Eran5102/Valuation-sub003/internal/audit"
)

// Config tunes the Postgres connection pool and breaker thresholds.
type Config struct {
	DSN                 string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	QueryTimeout        time.Duration
	ConsecutiveFailures uint32
}

// DefaultConfig returns conservative pool and breaker settings.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:                 dsn,
		MaxOpenConns:        10,
		MaxIdleConns:        5,
		ConnMaxLifetime:     30 * time.Minute,
		QueryTimeout:        5 * time.Second,
		ConsecutiveFailures: 3,
	}
}

// Store persists analysis audit trails and invariant reports to Postgres.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// Open connects to Postgres per cfg and wraps writes in a circuit breaker
// that trips after cfg.ConsecutiveFailures consecutive failed calls.
func Open(cfg Config) (*Store, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("auditstore: opening connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("auditstore: ping: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "auditstore",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		Timeout: 30 * time.Second,
	})

	return &Store{db: db, timeout: cfg.QueryTimeout, breaker: breaker}, nil
}

// NewForTesting wraps an already-open *sqlx.DB (typically a sqlmock
// connection), bypassing the dial/ping in Open.
func NewForTesting(db *sqlx.DB, timeout time.Duration) *Store {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "auditstore-test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Store{db: db, timeout: timeout, breaker: breaker}
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// RecordAnalysis persists one analysis's verification hash, audit trail,
// and invariant report, keyed by analysisID. Breaker-open errors and
// database errors are both returned to the caller, who should treat
// persistence failure as non-fatal: the in-memory AnalysisResult already
// holds the trail (spec.md §4.6, §7).
func (s *Store) RecordAnalysis(ctx context.Context, analysisID, verificationHash string, trail *audit.Trail, report *audit.Report) error {
	entriesJSON, err := json.Marshal(trail.Entries)
	if err != nil {
		return fmt.Errorf("auditstore: marshaling trail: %w", err)
	}
	rulesJSON, err := json.Marshal(report.Rules)
	if err != nil {
		return fmt.Errorf("auditstore: marshaling report: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		const query = `
			INSERT INTO analysis_audit (analysis_id, verification_hash, trail, rules, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (analysis_id) DO UPDATE SET
				verification_hash = EXCLUDED.verification_hash,
				trail = EXCLUDED.trail,
				rules = EXCLUDED.rules`

		_, err := s.db.ExecContext(ctx, query, analysisID, verificationHash, entriesJSON, rulesJSON, time.Now())
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("auditstore: recording analysis %s: %w", analysisID, err)
	}
	return nil
}

// storedAnalysis is the row shape returned by FindByID.
type storedAnalysis struct {
	AnalysisID       string    `db:"analysis_id"`
	VerificationHash string    `db:"verification_hash"`
	Trail            []byte    `db:"trail"`
	Rules            []byte    `db:"rules"`
	CreatedAt        time.Time `db:"created_at"`
}

// FindByID retrieves a previously recorded analysis's trail and report.
// Returns (nil, nil, nil) if no row exists.
func (s *Store) FindByID(ctx context.Context, analysisID string) (*audit.Trail, *audit.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row storedAnalysis
	err := s.db.GetContext(ctx, &row, `
		SELECT analysis_id, verification_hash, trail, rules, created_at
		FROM analysis_audit
		WHERE analysis_id = $1`, analysisID)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("auditstore: finding analysis %s: %w", analysisID, err)
	}

	trail := &audit.Trail{}
	if err := json.Unmarshal(row.Trail, &trail.Entries); err != nil {
		return nil, nil, fmt.Errorf("auditstore: unmarshaling trail: %w", err)
	}
	report := &audit.Report{}
	if err := json.Unmarshal(row.Rules, &report.Rules); err != nil {
		return nil, nil, fmt.Errorf("auditstore: unmarshaling rules: %w", err)
	}
	return trail, report, nil
}
