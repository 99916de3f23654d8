package httpapi

import (
	"net/http"

	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/pkg/middleware"
	"licensing-controlplane/services/application"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) RegisterApplication(c *gin.Context) {
	val := middleware.ValidatedLicense(c)

	var req application.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	app, err := h.apps.Register(c.Request.Context(), val, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handlers) ListApplications(c *gin.Context) {
	val := middleware.ValidatedLicense(c)

	apps, err := h.apps.List(c.Request.Context(), val.TenantID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *Handlers) ActivateApplication(c *gin.Context) {
	val := middleware.ValidatedLicense(c)

	app, err := h.apps.Activate(c.Request.Context(), val, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handlers) DeactivateApplication(c *gin.Context) {
	val := middleware.ValidatedLicense(c)

	app, err := h.apps.Deactivate(c.Request.Context(), val.TenantID, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, app)
}
