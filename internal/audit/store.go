package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/cloakd/cloakd/internal/config"
	"github.com/cloakd/cloakd/internal/engine"
)

// Store persists per-call anonymization summaries to Postgres for
// compliance review. It records counts and digests only; the matched
// values and the input text never reach the database.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Record is one audit trail row.
type Record struct {
	ID         int64     `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"request_id"`
	TextDigest string    `db:"text_digest" json:"text_digest"`
	Matches    int       `db:"matches" json:"matches"`
	Summary    string    `db:"summary" json:"summary"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS anonymization_audit (
	id          BIGSERIAL PRIMARY KEY,
	request_id  TEXT NOT NULL,
	text_digest TEXT NOT NULL,
	matches     INTEGER NOT NULL,
	summary     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS anonymization_audit_created_at_idx
	ON anonymization_audit (created_at);
`

// NewStore connects to Postgres and ensures the audit schema exists.
func NewStore(cfg *config.AuditConfig, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure audit schema: %w", err)
	}

	logger.Info("audit store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return store, nil
}

// Log writes one audit row for a completed anonymization call.
func (s *Store) Log(ctx context.Context, requestID, text string, result *engine.Result) error {
	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	digest := sha256.Sum256([]byte(text))

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO anonymization_audit (request_id, text_digest, matches, summary)
		 VALUES ($1, $2, $3, $4)`,
		requestID,
		hex.EncodeToString(digest[:]),
		len(result.Matches),
		summary,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	s.logger.Debug("audit record written",
		zap.String("request_id", requestID),
		zap.Int("matches", len(result.Matches)))
	return nil
}

// Recent returns the newest audit rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []Record
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, request_id, text_digest, matches, summary, created_at
		 FROM anonymization_audit ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	return records, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks credentials in a database URL for logging.
func maskDatabaseURL(url string) string {
	if !strings.Contains(url, "@") {
		return url
	}
	parts := strings.SplitN(url, "@", 2)
	if idx := strings.LastIndex(parts[0], ":"); idx > strings.Index(parts[0], "//")+1 {
		parts[0] = parts[0][:idx] + ":***"
	}
	return parts[0] + "@" + parts[1]
}
