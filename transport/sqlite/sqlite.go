// Package sqlite stores audit records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/drblury/fedstore/internal/runtime/jsoncodec"
	"github.com/drblury/fedstore/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "sqlite"

// DefaultFilePath is used when no database file is configured.
const DefaultFilePath = "fedstore_audit.db"

// ErrClosed is returned when publishing to a closed publisher.
var ErrClosed = errors.New("sqlite publisher is closed")

func init() {
	transport.Register(TransportName, Build)
}

// Build opens the configured database and returns its publisher.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return New(cfg.GetSQLiteFile(), logger)
}

// Publisher inserts audit records into the audit_records table.
type Publisher struct {
	db     *sql.DB
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// New opens (or creates) the database at filePath and ensures the schema.
func New(filePath string, logger watermill.LoggerAdapter) (*Publisher, error) {
	if filePath == "" {
		filePath = DefaultFilePath
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	db, err := sql.Open("sqlite3", filePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	p := &Publisher{db: db, logger: logger}
	if err := p.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

func (p *Publisher) initSchema() error {
	_, err := p.db.Exec(`
	CREATE TABLE IF NOT EXISTS audit_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL,
		topic TEXT NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_records_topic ON audit_records(topic, id);
	`)
	return err
}

// Publish inserts messages in one transaction.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			p.logger.Error("failed to rollback transaction", err, nil)
		}
	}()

	stmt, err := tx.Prepare(`INSERT INTO audit_records (uuid, topic, payload, metadata, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, msg := range messages {
		metadata, err := jsoncodec.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		payload := msg.Payload
		if payload == nil {
			payload = []byte{}
		}
		if _, err := stmt.Exec(msg.UUID, topic, payload, string(metadata), time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to insert audit record: %w", err)
		}
	}
	return tx.Commit()
}

// Records returns up to limit records for topic, oldest first. A limit of
// zero or less returns every record.
func (p *Publisher) Records(ctx context.Context, topic string, limit int) ([]transport.StoredMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT uuid, topic, payload, metadata, created_at FROM audit_records WHERE topic = ? ORDER BY id LIMIT ?`,
		topic, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var out []transport.StoredMessage
	for rows.Next() {
		var (
			sm       transport.StoredMessage
			metadata sql.NullString
		)
		if err := rows.Scan(&sm.UUID, &sm.Topic, &sm.Payload, &metadata, &sm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := jsoncodec.Unmarshal([]byte(metadata.String), &sm.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Close closes the database.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
