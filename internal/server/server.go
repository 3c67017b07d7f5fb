// Package server exposes the HTTP surface: document upload and inspection,
// the unresolved-item ledger, and XLSX exports for the back office.
package server

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/export"
	"github.com/vinodex/invoice-reconciler/internal/ledger"
	"github.com/vinodex/invoice-reconciler/internal/pipeline"
	"github.com/vinodex/invoice-reconciler/internal/repository"
)

// Server bundles the handler dependencies.
type Server struct {
	logger         *slog.Logger
	db             *sql.DB
	documents      repository.DocumentRepository
	ledger         *ledger.Service
	export         *export.Service
	processor      *pipeline.Processor
	maxUploadBytes int64
}

func New(
	logger *slog.Logger,
	db *sql.DB,
	documents repository.DocumentRepository,
	ledgerSvc *ledger.Service,
	exportSvc *export.Service,
	processor *pipeline.Processor,
	maxUploadBytes int64,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Server{
		logger:         logger,
		db:             db,
		documents:      documents,
		ledger:         ledgerSvc,
		export:         exportSvc,
		processor:      processor,
		maxUploadBytes: maxUploadBytes,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.POST("/documents", s.handleUploadDocument)
		api.GET("/documents", s.handleListDocuments)
		api.GET("/documents/:id", s.handleGetDocument)
		api.GET("/failures", s.handleListFailures)

		api.GET("/unresolved", s.handleListUnresolved)
		api.GET("/unresolved/:id", s.handleGetUnresolved)
		api.POST("/unresolved/:id/resolve", s.handleResolveUnresolved)

		api.GET("/export/review-queue.xlsx", s.handleExportReviewQueue)
		api.GET("/export/documents.xlsx", s.handleExportDocuments)
		api.GET("/export/unresolved.xlsx", s.handleExportUnresolved)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	if err := repository.HealthCheck(ctx, s.db, 2*time.Second); err != nil {
		s.logger.Error("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// errorJSON maps domain errors onto the response envelope.
func (s *Server) errorJSON(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, common.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, common.ErrDuplicateDocument):
		status, code = http.StatusConflict, "duplicate_document"
	case errors.Is(err, common.ErrAlreadyResolved):
		status, code = http.StatusConflict, "already_resolved"
	case errors.Is(err, common.ErrAliasCollision):
		status, code = http.StatusConflict, "alias_collision"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": err.Error()}})
}
