package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/special-ed-api/internal/service"
	"github.com/noah-isme/special-ed-api/pkg/response"
)

type entityNames interface {
	Names() []string
}

// FetchHandler lists rows by table name and wraps them in a named key.
type FetchHandler struct {
	records  *service.RecordService
	entities entityNames
}

// NewFetchHandler constructs FetchHandler.
func NewFetchHandler(records *service.RecordService, entities entityNames) *FetchHandler {
	return &FetchHandler{records: records, entities: entities}
}

// Fetch godoc
// @Summary Fetch rows of a table as {"<table>s": [...]}
// @Tags Records
// @Produce json
// @Param table path string true "student, parent, teacher, class or assessment"
// @Success 200 {object} map[string]interface{}
// @Router /fetch/{table} [get]
func (h *FetchHandler) Fetch(c *gin.Context) {
	table := c.Param("table")
	if !h.known(table) {
		quoted := make([]string, 0)
		for _, name := range h.entities.Names() {
			quoted = append(quoted, "'"+name+"'")
		}
		response.JSON(c, http.StatusOK, gin.H{
			"error": fmt.Sprintf("Table '%s' not found. Valid options: [%s]", table, strings.Join(quoted, ", ")),
		})
		return
	}

	rows, err := h.records.List(c.Request.Context(), table)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{table + "s": rows})
}

func (h *FetchHandler) known(table string) bool {
	for _, name := range h.entities.Names() {
		if name == table {
			return true
		}
	}
	return false
}
