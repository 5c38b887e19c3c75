package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql

	"github.com/talonsec/talon/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresOptions tunes the connection pool. Zero values fall back to
// sensible defaults.
type PostgresOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Postgres is the PostgreSQL-backed Store.
type Postgres struct {
	db *stdsql.DB
}

// NewPostgres opens a pooled connection, verifies it, and applies any pending
// embedded migrations. Migration files are embedded into the binary so
// production deployments carry their own schema.
func NewPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*Postgres, error) {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	if opts.ConnMaxIdleTime == 0 {
		opts.ConnMaxIdleTime = 10 * time.Minute
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Postgres{db: db}, nil
}

// runMigrations applies embedded migrations with golang-migrate.
func runMigrations(db *stdsql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "talon", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Close only the source driver. m.Close() would also close the database
	// driver, which closes the shared *sql.DB behind the store.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("failed to close migration source: %w", err)
	}
	return nil
}

// DB exposes the underlying pool for health checks.
func (p *Postgres) DB() *stdsql.DB { return p.db }

func (p *Postgres) AddAsset(ctx context.Context, asset models.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO assets (id, name, kind, value, created_at) VALUES ($1, $2, $3, $4, $5)`,
		asset.ID, asset.Name, string(asset.Kind), asset.Value, asset.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateAsset, asset.Name)
		}
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

func (p *Postgres) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	return p.scanAsset(p.db.QueryRowContext(ctx,
		`SELECT id, name, kind, value, created_at FROM assets WHERE id = $1`, id), id)
}

func (p *Postgres) GetAssetByName(ctx context.Context, name string) (*models.Asset, error) {
	return p.scanAsset(p.db.QueryRowContext(ctx,
		`SELECT id, name, kind, value, created_at FROM assets WHERE name = $1`, name), name)
}

func (p *Postgres) scanAsset(row *stdsql.Row, ref string) (*models.Asset, error) {
	var asset models.Asset
	var kind string
	err := row.Scan(&asset.ID, &asset.Name, &kind, &asset.Value, &asset.CreatedAt)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, fmt.Errorf("%w: asset %q", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	asset.Kind = models.AssetKind(kind)
	return &asset, nil
}

func (p *Postgres) ListAssets(ctx context.Context) ([]models.Asset, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, kind, value, created_at FROM assets ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		var asset models.Asset
		var kind string
		if err := rows.Scan(&asset.ID, &asset.Name, &kind, &asset.Value, &asset.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		asset.Kind = models.AssetKind(kind)
		out = append(out, asset)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveFindings(ctx context.Context, findings []models.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, f := range findings {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO findings (id, title, severity, description, asset_ref, category, remediation, evidence_path, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			f.ID, f.Title, string(f.Severity), f.Description, f.AssetRef,
			f.Category, f.Remediation, f.EvidencePath, f.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert finding: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit findings: %w", err)
	}
	return nil
}

func (p *Postgres) ListFindings(ctx context.Context) ([]models.Finding, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, title, severity, description, asset_ref, category, remediation, evidence_path, created_at
		 FROM findings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	defer rows.Close()

	var out []models.Finding
	for rows.Next() {
		var f models.Finding
		var severity string
		if err := rows.Scan(&f.ID, &f.Title, &severity, &f.Description, &f.AssetRef,
			&f.Category, &f.Remediation, &f.EvidencePath, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Severity = models.FindingSeverity(severity)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *Postgres) AppendAudit(ctx context.Context, entry AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to encode audit data: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO audit_log (ts, actor, event_type, data) VALUES ($1, $2, $3, $4)`,
		entry.Timestamp, entry.Actor, entry.EventType, data)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (p *Postgres) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	query := `SELECT id, ts, actor, event_type, data FROM audit_log ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var data []byte
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Actor, &entry.EventType, &data); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &entry.Data); err != nil {
				return nil, fmt.Errorf("failed to decode audit data: %w", err)
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error { return p.db.Close() }

// isUniqueViolation matches Postgres error code 23505 without importing the
// pgx error types into every caller.
func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	return errors.As(err, &c) && c.SQLState() == "23505"
}
