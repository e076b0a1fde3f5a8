package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/special-ed-api/internal/dto"
	"github.com/noah-isme/special-ed-api/internal/service"
	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
	"github.com/noah-isme/special-ed-api/pkg/response"
)

// multipart overhead allowed on top of the file limit.
const uploadEnvelopeBytes = 1 << 20

// UploadHandler accepts spreadsheet uploads.
type UploadHandler struct {
	uploads     *service.ReconcileService
	maxFileSize int64
}

// NewUploadHandler constructs UploadHandler. maxFileSize bounds each uploaded file.
func NewUploadHandler(uploads *service.ReconcileService, maxFileSize int64) *UploadHandler {
	return &UploadHandler{uploads: uploads, maxFileSize: maxFileSize}
}

// Upload godoc
// @Summary Upload a spreadsheet and merge it into the entity table
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param entity path string true "student, parent, teacher, class or assessment"
// @Param file formData file true ".csv, .xls or .xlsx"
// @Success 200 {object} dto.UploadResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 413 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Failure 503 {object} response.ErrorBody
// @Router /upload-{entity} [post]
func (h *UploadHandler) Upload(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.maxFileSize > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+uploadEnvelopeBytes)
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(c, h.tooLarge())
				return
			}
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
			return
		}
		if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
			response.Error(c, h.tooLarge())
			return
		}

		src, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to open file"))
			return
		}
		defer src.Close()

		result, err := h.uploads.Upload(c.Request.Context(), entity, fileHeader.Filename, src)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, dto.UploadResponse{
			Message:        "File uploaded to warehouse",
			Entity:         result.Entity,
			Table:          result.Table,
			RowsRead:       result.RowsRead,
			RowsStaged:     result.RowsStaged,
			RowsSkipped:    result.RowsSkipped,
			RowsAffected:   result.RowsAffected,
			InvalidDates:   result.InvalidDates,
			DroppedColumns: result.DroppedColumns,
		})
	}
}

func (h *UploadHandler) tooLarge() *appErrors.Error {
	return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds the %d byte upload limit", h.maxFileSize))
}
