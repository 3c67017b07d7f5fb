package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vinodex/invoice-reconciler/constants"
	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/repository"
)

// handleUploadDocument accepts one multipart PDF under the "file" field and
// runs it through the pipeline synchronously. Duplicates return 409.
func (s *Server) handleUploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.errorJSON(c, fmt.Errorf("missing file field: %w", common.ErrInvalidInput))
		return
	}
	if fileHeader.Size > s.maxUploadBytes {
		s.errorJSON(c, fmt.Errorf("file exceeds %d bytes: %w", s.maxUploadBytes, common.ErrInvalidInput))
		return
	}
	ext := constants.NormalizeExt(filepath.Ext(fileHeader.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		s.errorJSON(c, fmt.Errorf("unsupported extension %q: %w", ext, common.ErrInvalidInput))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, s.maxUploadBytes+1))
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	if int64(len(content)) > s.maxUploadBytes {
		s.errorJSON(c, fmt.Errorf("file exceeds %d bytes: %w", s.maxUploadBytes, common.ErrInvalidInput))
		return
	}

	doc := entity.RawDocument{
		ID:          uuid.New(),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	}
	processed, err := s.processor.Process(c.Request.Context(), doc)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":              processed.ID,
		"provider_id":     processed.ProviderID,
		"status":          processed.Status(),
		"lines":           len(processed.Lines),
		"requires_review": processed.RequiresReview,
		"review_reasons":  processed.ReviewReasons,
	})
}

// listFilter reads review/provider/from/to query parameters. Dates are
// YYYY-MM-DD; "to" is inclusive through end of that day.
func listFilter(c *gin.Context) (repository.ListFilter, error) {
	filter := repository.ListFilter{
		ReviewOnly: c.Query("review") == "true",
		ProviderID: c.Query("provider"),
	}
	if fd := c.Query("from"); fd != "" {
		t, err := time.Parse("2006-01-02", fd)
		if err != nil {
			return filter, fmt.Errorf("from must be YYYY-MM-DD: %w", common.ErrInvalidInput)
		}
		filter.From = &t
	}
	if td := c.Query("to"); td != "" {
		t, err := time.Parse("2006-01-02", td)
		if err != nil {
			return filter, fmt.Errorf("to must be YYYY-MM-DD: %w", common.ErrInvalidInput)
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	return filter, nil
}

func (s *Server) handleListDocuments(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	summaries, err := s.documents.List(c.Request.Context(), filter)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": summaries})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.errorJSON(c, fmt.Errorf("id must be a UUID: %w", common.ErrInvalidInput))
		return
	}
	doc, err := s.documents.Get(c.Request.Context(), id)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleListFailures(c *gin.Context) {
	failures, err := s.documents.ListFailures(c.Request.Context())
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"failures": failures})
}
