package api

// CreateAssetRequest is the HTTP request body for POST /api/v1/assets.
type CreateAssetRequest struct {
	Name  string `json:"name" binding:"required"`
	Kind  string `json:"kind" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// CreateRunRequest is the HTTP request body for POST /api/v1/runs.
type CreateRunRequest struct {
	Objective string `json:"objective" binding:"required"`
	Mode      string `json:"mode,omitempty"`
}
