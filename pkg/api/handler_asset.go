package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talonsec/talon/pkg/models"
)

// createAsset handles POST /api/v1/assets.
func (s *Server) createAsset(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}

	asset := models.Asset{
		Name:  req.Name,
		Kind:  models.AssetKind(req.Kind),
		Value: req.Value,
	}
	if !asset.Kind.IsValid() {
		writeBadRequest(c, "kind must be one of: host, domain, vm")
		return
	}

	if err := s.store.AddAsset(c.Request.Context(), asset); err != nil {
		writeError(c, err)
		return
	}

	created, err := s.store.GetAssetByName(c.Request.Context(), asset.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// listAssets handles GET /api/v1/assets.
func (s *Server) listAssets(c *gin.Context) {
	assets, err := s.store.ListAssets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, AssetListResponse{Assets: assets, Count: len(assets)})
}
