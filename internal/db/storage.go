package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-crawl/internal/cache"
	"github.com/albapepper/scoracle-crawl/internal/gateway"
)

// Storage hands out pooled connections to the persistence gateway.
type Storage struct {
	pool *pgxpool.Pool
}

// NewStorage adapts p for the gateway.
func NewStorage(p *Pool) *Storage {
	return &Storage{pool: p.Pool}
}

// Acquire blocks until a pooled connection is free. The caller must Release it.
func (s *Storage) Acquire(ctx context.Context) (gateway.Conn, error) {
	c, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &conn{c: c}, nil
}

type conn struct {
	c *pgxpool.Conn
}

// Exec runs statement text. Without arguments pgx uses the simple protocol,
// so the text may hold several statements.
func (c *conn) Exec(ctx context.Context, statement string) error {
	_, err := c.c.Exec(ctx, statement)
	return err
}

func (c *conn) Release() {
	c.c.Release()
}

// --------------------------------------------------------------------------
// Scanner log
// --------------------------------------------------------------------------

// ScannerLog reads and trims app_public.scanner_log.
type ScannerLog struct {
	pool *pgxpool.Pool
}

// NewScannerLog returns the scanner log backed by p.
func NewScannerLog(p *Pool) *ScannerLog {
	return &ScannerLog{pool: p.Pool}
}

// LatestHashes returns the most recent row of every identifier.
func (l *ScannerLog) LatestHashes(ctx context.Context) ([]cache.Record, error) {
	rows, err := l.pool.Query(ctx, "scanner_log_latest")
	if err != nil {
		return nil, fmt.Errorf("query scanner log: %w", err)
	}
	defer rows.Close()

	var records []cache.Record
	for rows.Next() {
		var r cache.Record
		var typ string
		if err := rows.Scan(&r.ID, &typ, &r.Hash, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scanner log row: %w", err)
		}
		r.Type = cache.EntryType(typ)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scanner log: %w", err)
	}
	return records, nil
}

// Prune deletes superseded rows older than retentionDays and returns how many
// were removed. The latest row of every identifier is always kept.
func (l *ScannerLog) Prune(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := l.pool.Exec(ctx, "scanner_log_prune", retentionDays)
	if err != nil {
		return 0, fmt.Errorf("prune scanner log: %w", err)
	}
	return tag.RowsAffected(), nil
}
