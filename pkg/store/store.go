// Package store persists engagement state: authorized assets, normalized
// findings, and the audit log. Two backends exist, PostgreSQL for real runs
// and an in-memory store for tests and dry runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/talonsec/talon/pkg/models"
)

// ErrNotFound means the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateAsset means an asset with the same name already exists. Assets
// are unique by name and immutable after creation.
var ErrDuplicateAsset = errors.New("asset already exists")

// AuditEntry is one append-only audit log record.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data,omitempty"`
}

// Store is the persistence surface used by the API and the orchestrator.
type Store interface {
	// AddAsset persists an asset. Returns ErrDuplicateAsset when the name
	// is taken.
	AddAsset(ctx context.Context, asset models.Asset) error
	// GetAsset fetches an asset by ID.
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	// GetAssetByName fetches an asset by its unique name.
	GetAssetByName(ctx context.Context, name string) (*models.Asset, error)
	// ListAssets returns all assets ordered by creation time.
	ListAssets(ctx context.Context) ([]models.Asset, error)

	// SaveFindings persists a batch of findings.
	SaveFindings(ctx context.Context, findings []models.Finding) error
	// ListFindings returns all findings ordered by creation time.
	ListFindings(ctx context.Context) ([]models.Finding, error)

	// AppendAudit appends one audit log entry. The timestamp is stamped by
	// the store when zero.
	AppendAudit(ctx context.Context, entry AuditEntry) error
	// ListAudit returns the most recent entries, newest first. limit <= 0
	// means no limit.
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)

	// Close releases backend resources.
	Close() error
}
