package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talonsec/talon/pkg/models"
)

func TestMemoryAssetLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	asset := models.Asset{Name: "lab-vm", Kind: models.AssetKindVM, Value: "192.168.1.50"}
	require.NoError(t, m.AddAsset(ctx, asset))

	byName, err := m.GetAssetByName(ctx, "lab-vm")
	require.NoError(t, err)
	assert.NotEmpty(t, byName.ID, "store assigns an ID")
	assert.False(t, byName.CreatedAt.IsZero(), "store stamps creation time")

	byID, err := m.GetAsset(ctx, byName.ID)
	require.NoError(t, err)
	assert.Equal(t, *byName, *byID)
}

func TestMemoryAssetNameIsUnique(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.AddAsset(ctx, models.Asset{Name: "site", Kind: models.AssetKindDomain, Value: "example.com"}))
	err := m.AddAsset(ctx, models.Asset{Name: "site", Kind: models.AssetKindDomain, Value: "example.net"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateAsset)

	assets, err := m.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
	assert.Equal(t, "example.com", assets[0].Value, "first registration wins")
}

func TestMemoryGetAssetNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.GetAsset(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetAssetByName(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListAssetsOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.AddAsset(ctx, models.Asset{Name: "b", Kind: models.AssetKindHost, Value: "10.0.0.2", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, m.AddAsset(ctx, models.Asset{Name: "a", Kind: models.AssetKindHost, Value: "10.0.0.1", CreatedAt: base}))

	assets, err := m.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "a", assets[0].Name)
	assert.Equal(t, "b", assets[1].Name)
}

func TestMemorySaveAndListFindings(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SaveFindings(ctx, []models.Finding{
		{Title: "Open SSH", Severity: models.FindingSeverityLow, AssetRef: "192.168.1.50"},
		{Title: "SQLi", Severity: models.FindingSeverityCritical, AssetRef: "192.168.1.50"},
	}))
	require.NoError(t, m.SaveFindings(ctx, nil))

	findings, err := m.ListFindings(ctx)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.NotEmpty(t, findings[0].ID)
	assert.False(t, findings[1].CreatedAt.IsZero())
}

func TestMemoryAuditNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, event := range []string{"run.started", "step.completed", "run.completed"} {
		require.NoError(t, m.AppendAudit(ctx, AuditEntry{
			Actor:     "orchestrator",
			EventType: event,
			Data:      map[string]any{"run_id": "r1"},
		}))
	}

	entries, err := m.ListAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "run.completed", entries[0].EventType)
	assert.Equal(t, "run.started", entries[2].EventType)
	assert.False(t, entries[0].Timestamp.IsZero())

	limited, err := m.ListAudit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run.completed", limited[0].EventType)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = m.AppendAudit(ctx, AuditEntry{Actor: "test", EventType: "tick"})
			_, _ = m.ListAudit(ctx, 5)
			_ = m.SaveFindings(ctx, []models.Finding{{Title: "f", Severity: models.FindingSeverityInfo}})
			_, _ = m.ListFindings(ctx)
		}(i)
	}
	wg.Wait()

	entries, err := m.ListAudit(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
	findings, err := m.ListFindings(ctx)
	require.NoError(t, err)
	assert.Len(t, findings, 8)
}
