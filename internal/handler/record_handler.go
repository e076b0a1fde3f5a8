package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/special-ed-api/internal/dto"
	"github.com/noah-isme/special-ed-api/internal/models"
	"github.com/noah-isme/special-ed-api/internal/service"
	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
	"github.com/noah-isme/special-ed-api/pkg/response"
)

// RecordHandler exposes the per-entity row endpoints. Each method returns
// the gin handler bound to one entity.
type RecordHandler struct {
	records *service.RecordService
}

// NewRecordHandler constructs RecordHandler.
func NewRecordHandler(records *service.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// List godoc
// @Summary List every row of an entity
// @Tags Records
// @Produce json
// @Param entity path string true "student, parent, teacher, class or assessment"
// @Success 200 {array} object
// @Failure 404 {object} response.ErrorBody
// @Router /get-{entity} [get]
func (h *RecordHandler) List(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.records.List(c.Request.Context(), entity)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, rows)
	}
}

// Add godoc
// @Summary Add rows with generated keys
// @Tags Records
// @Accept json
// @Produce json
// @Param entity path string true "student, parent, teacher, class or assessment"
// @Param payload body []object true "Rows without keys"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /add-{entity} [post]
func (h *RecordHandler) Add(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, ok := h.bindRecords(c, entity)
		if !ok {
			return
		}
		keys, err := h.records.InsertMany(c.Request.Context(), entity, records)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, fmt.Sprintf("Added %d %s(s) successfully", len(keys), entity), gin.H{"ids": keys})
	}
}

// Update godoc
// @Summary Overwrite rows by key
// @Tags Records
// @Accept json
// @Produce json
// @Param entity path string true "student, parent, teacher, class or assessment"
// @Param payload body []object true "Full rows including keys"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /update-{entity} [put]
func (h *RecordHandler) Update(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, ok := h.bindRecords(c, entity)
		if !ok {
			return
		}
		matched, err := h.records.UpdateMany(c.Request.Context(), entity, records)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, fmt.Sprintf("Updated %d %s successfully", len(records), entity), gin.H{"matched": matched})
	}
}

// Delete godoc
// @Summary Delete one row by key
// @Tags Records
// @Produce json
// @Param entity path string true "student, parent, teacher, class or assessment"
// @Param id path string true "Row key"
// @Success 200 {object} map[string]interface{}
// @Router /delete-{entity}/{id} [delete]
func (h *RecordHandler) Delete(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := h.records.Delete(c.Request.Context(), entity, id); err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, fmt.Sprintf("Deleted %s %s successfully", entity, id))
	}
}

// Save godoc
// @Summary Apply a batch of new and edited rows
// @Tags Records
// @Accept json
// @Produce json
// @Param entity path string true "student, parent, teacher, class or assessment"
// @Param payload body []dto.RecordChangeRequest true "Tagged changes"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /save-{entity} [post]
func (h *RecordHandler) Save(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req []dto.RecordChangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, fmt.Sprintf("invalid %s changes", entity)))
			return
		}
		changes := make([]models.RecordChange, 0, len(req))
		for _, item := range req {
			record, err := h.records.Decode(entity, item.Record)
			if err != nil {
				response.Error(c, err)
				return
			}
			changes = append(changes, models.RecordChange{Kind: item.Kind, Record: record})
		}
		result, err := h.records.Save(c.Request.Context(), entity, changes)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, fmt.Sprintf("Saved changes to %s", entity), gin.H{"added": result.Added, "updated": result.Updated})
	}
}

func (h *RecordHandler) bindRecords(c *gin.Context, entity string) ([]models.Record, bool) {
	var payload []json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, fmt.Sprintf("expected a JSON array of %s rows", entity)))
		return nil, false
	}
	records := make([]models.Record, 0, len(payload))
	for _, raw := range payload {
		record, err := h.records.Decode(entity, raw)
		if err != nil {
			response.Error(c, err)
			return nil, false
		}
		records = append(records, record)
	}
	return records, true
}
