package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleExportReviewQueue(c *gin.Context) {
	data, err := s.export.ExportReviewQueueXLSX(c.Request.Context())
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	serveXLSX(c, "review-queue", data)
}

func (s *Server) handleExportDocuments(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	data, err := s.export.ExportDocumentsXLSX(c.Request.Context(), filter)
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	serveXLSX(c, "documents", data)
}

func (s *Server) handleExportUnresolved(c *gin.Context) {
	data, err := s.export.ExportUnresolvedXLSX(c.Request.Context())
	if err != nil {
		s.errorJSON(c, err)
		return
	}
	serveXLSX(c, "unresolved", data)
}

func serveXLSX(c *gin.Context, name string, data []byte) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
