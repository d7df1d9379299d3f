// Package postgres stores audit records in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/drblury/fedstore/internal/runtime/jsoncodec"
	"github.com/drblury/fedstore/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "postgres"

// DefaultSchemaName is the schema audit tables are created in.
const DefaultSchemaName = "fedstore"

var (
	// ErrClosed is returned when publishing to a closed publisher.
	ErrClosed = errors.New("postgres publisher is closed")
	// ErrConnectionStringRequired is returned by New without a connection string.
	ErrConnectionStringRequired = errors.New("PostgreSQL connection string is required")

	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

func init() {
	transport.Register(TransportName, Build)
	transport.Register("postgresql", Build) // Alias
}

// Config holds PostgreSQL-specific configuration.
type Config struct {
	// ConnectionString is the PostgreSQL connection string.
	ConnectionString string
	// SchemaName is the schema to use for tables. Defaults to "fedstore".
	SchemaName string
}

// Build connects to the configured database and returns its publisher.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return New(ctx, Config{ConnectionString: cfg.GetPostgresURL()}, logger)
}

// Publisher inserts audit records into <schema>.audit_records.
type Publisher struct {
	db     *sql.DB
	schema string
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// New connects, verifies the connection and ensures the schema.
func New(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (*Publisher, error) {
	if cfg.ConnectionString == "" {
		return nil, ErrConnectionStringRequired
	}
	if cfg.SchemaName == "" {
		cfg.SchemaName = DefaultSchemaName
	}
	if !identifierPattern.MatchString(cfg.SchemaName) {
		return nil, fmt.Errorf("invalid schema name %q", cfg.SchemaName)
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	p := &Publisher{db: db, schema: cfg.SchemaName, logger: logger}
	if err := p.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

func (p *Publisher) table() string {
	return p.schema + ".audit_records"
}

func (p *Publisher) initSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+p.schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id BIGSERIAL PRIMARY KEY,
		uuid TEXT NOT NULL,
		topic TEXT NOT NULL,
		payload BYTEA NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_audit_records_topic ON %[1]s (topic, id);
	`, p.table()))
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

	stmt, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO %s (uuid, topic, payload, metadata, created_at) VALUES ($1, $2, $3, $4, $5)`, p.table()))
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
	query := fmt.Sprintf(`SELECT uuid, topic, payload, metadata, created_at FROM %s WHERE topic = $1 ORDER BY id`, p.table())
	args := []any{topic}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var out []transport.StoredMessage
	for rows.Next() {
		var (
			sm       transport.StoredMessage
			metadata []byte
		)
		if err := rows.Scan(&sm.UUID, &sm.Topic, &sm.Payload, &metadata, &sm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if len(metadata) > 0 {
			if err := jsoncodec.Unmarshal(metadata, &sm.Metadata); err != nil {
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
