package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/special-ed-api/internal/service"
	"github.com/noah-isme/special-ed-api/pkg/response"
)

// ExportHandler serves entity downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Export godoc
// @Summary Download an entity's rows
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param entity path string true "student, parent, teacher, class or assessment"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Router /export-{entity} [get]
func (h *ExportHandler) Export(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := h.exports.Export(c.Request.Context(), entity, c.Query("format"))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, file.ContentType, file.Data)
	}
}
