package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talonsec/talon/pkg/models"
)

// Memory is an in-process Store backed by mutex-guarded maps. Used by tests
// and by runs configured with store.type: memory.
type Memory struct {
	mu       sync.RWMutex
	assets   map[string]models.Asset // keyed by ID
	byName   map[string]string       // name -> ID
	findings []models.Finding
	audit    []AuditEntry
	auditSeq int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		assets: make(map[string]models.Asset),
		byName: make(map[string]string),
	}
}

func (m *Memory) AddAsset(_ context.Context, asset models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byName[asset.Name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateAsset, asset.Name)
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	m.assets[asset.ID] = asset
	m.byName[asset.Name] = asset.ID
	return nil
}

func (m *Memory) GetAsset(_ context.Context, id string) (*models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	asset, ok := m.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: asset %s", ErrNotFound, id)
	}
	return &asset, nil
}

func (m *Memory) GetAssetByName(_ context.Context, name string) (*models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: asset %q", ErrNotFound, name)
	}
	asset := m.assets[id]
	return &asset, nil
}

func (m *Memory) ListAssets(_ context.Context) ([]models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Asset, 0, len(m.assets))
	for _, asset := range m.assets {
		out = append(out, asset)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) SaveFindings(_ context.Context, findings []models.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range findings {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now().UTC()
		}
		m.findings = append(m.findings, f)
	}
	return nil
}

func (m *Memory) ListFindings(_ context.Context) ([]models.Finding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Finding, len(m.findings))
	copy(out, m.findings)
	return out, nil
}

func (m *Memory) AppendAudit(_ context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.auditSeq++
	entry.ID = m.auditSeq
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) ListAudit(_ context.Context, limit int) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]AuditEntry, len(m.audit))
	copy(out, m.audit)
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
