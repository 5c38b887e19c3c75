package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talonsec/talon/pkg/models"
)

func TestCreateAsset(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.request(t, http.MethodPost, "/api/v1/assets",
		`{"name":"lab-vm","kind":"vm","value":"192.168.1.50"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	asset := decode[models.Asset](t, rec)
	assert.NotEmpty(t, asset.ID)
	assert.Equal(t, "lab-vm", asset.Name)
	assert.Equal(t, models.AssetKindVM, asset.Kind)
	assert.False(t, asset.CreatedAt.IsZero())
}

func TestCreateAssetValidation(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing name", `{"kind":"host","value":"10.0.0.1"}`, http.StatusBadRequest},
		{"missing value", `{"name":"a","kind":"host"}`, http.StatusBadRequest},
		{"bad kind", `{"name":"a","kind":"satellite","value":"x"}`, http.StatusBadRequest},
		{"malformed json", `{"name":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, http.MethodPost, "/api/v1/assets", tt.body, nil)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestCreateAssetDuplicateName(t *testing.T) {
	env := newTestEnv(t, "")

	body := `{"name":"site","kind":"domain","value":"example.com"}`
	rec := env.request(t, http.MethodPost, "/api/v1/assets", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/assets", body, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListAssets(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.request(t, http.MethodGet, "/api/v1/assets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[AssetListResponse](t, rec).Count)

	env.request(t, http.MethodPost, "/api/v1/assets", `{"name":"a","kind":"host","value":"10.0.0.1"}`, nil)
	env.request(t, http.MethodPost, "/api/v1/assets", `{"name":"b","kind":"host","value":"10.0.0.2"}`, nil)

	rec = env.request(t, http.MethodGet, "/api/v1/assets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[AssetListResponse](t, rec)
	assert.Equal(t, 2, list.Count)
	assert.Len(t, list.Assets, 2)
}
