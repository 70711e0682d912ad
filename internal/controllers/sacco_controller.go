package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListSaccos lists all Saccos
func (h *Handler) ListSaccos(c *gin.Context) {
	saccos, err := h.Catalog.ListSaccos(c.Request.Context())
	if err != nil {
		writeServiceError(c, "ListSaccos", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": saccos})
}
