package httpapi

import (
	"net/http"

	"licensing-controlplane/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) QuotaStatus(c *gin.Context) {
	val := middleware.ValidatedLicense(c)

	status, err := h.quota.Status(c.Request.Context(), val.TenantID, val.MaxApps, val.MaxExecutionsPer24h)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}
