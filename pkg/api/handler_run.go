package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/orchestrator"
)

// createRun handles POST /api/v1/runs: validates and enqueues an engagement.
func (s *Server) createRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}

	run := &models.Run{Objective: req.Objective, Mode: models.ScanMode(req.Mode)}
	if req.Mode != "" && !run.Mode.IsValid() {
		writeBadRequest(c, "mode must be one of: passive, active, lab")
		return
	}

	if err := s.runs.Submit(run); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, RunResponse{Run: *run})
}

// listRuns handles GET /api/v1/runs.
func (s *Server) listRuns(c *gin.Context) {
	runs := s.runs.List()
	c.JSON(http.StatusOK, RunListResponse{Runs: runs, Count: len(runs)})
}

// getRun handles GET /api/v1/runs/:id.
func (s *Server) getRun(c *gin.Context) {
	run, ok := s.runs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "resource not found"})
		return
	}
	c.JSON(http.StatusOK, RunResponse{Run: *run})
}

// cancelRun handles POST /api/v1/runs/:id/cancel.
func (s *Server) cancelRun(c *gin.Context) {
	id := c.Param("id")
	if !s.runs.Cancel(id) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "run is not active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": id})
}

// reportContentTypes maps report formats to response content types.
var reportContentTypes = map[orchestrator.ReportFormat]string{
	orchestrator.ReportFormatJSON:     "application/json",
	orchestrator.ReportFormatMarkdown: "text/markdown; charset=utf-8",
	orchestrator.ReportFormatHTML:     "text/html; charset=utf-8",
	orchestrator.ReportFormatCSV:      "text/csv; charset=utf-8",
}

// getReport handles GET /api/v1/runs/:id/report?format=.
func (s *Server) getReport(c *gin.Context) {
	format := orchestrator.ReportFormat(c.DefaultQuery("format", string(orchestrator.ReportFormatJSON)))
	if !format.IsValid() {
		writeBadRequest(c, "format must be one of: json, markdown, html, csv")
		return
	}

	report, err := s.runs.Report(c.Param("id"), format)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, reportContentTypes[format], []byte(report))
}
