package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vinodex/invoice-reconciler/internal/common"
)

func (s *Server) handleListUnresolved(c *gin.Context) {
	recs, err := s.ledger.ListPending(c.Request.Context())
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unresolved": recs})
}

func (s *Server) handleGetUnresolved(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.errorJSON(c, fmt.Errorf("id must be an integer: %w", common.ErrInvalidInput))
		return
	}
	rec, err := s.ledger.Get(c.Request.Context(), id)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type resolveRequest struct {
	EntryID     int64 `json:"entry_id" binding:"required"`
	CreateAlias bool  `json:"create_alias"`
}

// handleResolveUnresolved applies one manual resolution. Re-submitting the
// same record returns 409 so a double click in the back office is visible,
// not silently absorbed.
func (s *Server) handleResolveUnresolved(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.errorJSON(c, fmt.Errorf("id must be an integer: %w", common.ErrInvalidInput))
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorJSON(c, fmt.Errorf("body: %v: %w", err, common.ErrInvalidInput))
		return
	}
	rec, err := s.ledger.Resolve(c.Request.Context(), id, req.EntryID, req.CreateAlias)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
