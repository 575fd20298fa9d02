package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"libhub/internal/registry"
	"libhub/internal/services"
)

func (h *Handler) exportCSV(c *gin.Context) {
	kind := registry.Kind(c.Param("kind"))
	if _, ok := h.registry.Lookup(kind); !ok {
		respondError(c, services.ErrUnknownKind)
		return
	}

	filename := fmt.Sprintf("%s-%s.csv", kind, time.Now().UTC().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	// headers are already sent; a failure here can only truncate the body
	if err := h.export.ExportCSV(c.Request.Context(), kind, c.Writer); err != nil {
		_ = c.Error(err)
	}
}
