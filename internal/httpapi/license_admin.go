package httpapi

import (
	"net/http"
	"time"

	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/services/license"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) CreateLicense(c *gin.Context) {
	var req license.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	lic, err := h.licenses.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, lic)
}

func (h *Handlers) ListLicenses(c *gin.Context) {
	licenses, err := h.licenses.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"licenses": licenses})
}

func (h *Handlers) GetLicense(c *gin.Context) {
	lic, err := h.licenses.Get(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, lic)
}

func (h *Handlers) SuspendLicense(c *gin.Context) {
	lic, err := h.licenses.Suspend(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, lic)
}

func (h *Handlers) ReactivateLicense(c *gin.Context) {
	lic, err := h.licenses.Reactivate(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, lic)
}

func (h *Handlers) RevokeLicense(c *gin.Context) {
	lic, err := h.licenses.Revoke(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, lic)
}

type issueTokenRequest struct {
	TTL string `json:"ttl"`
}

func (h *Handlers) IssueLicenseToken(c *gin.Context) {
	ttl := 24 * time.Hour

	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil || parsed <= 0 {
			c.Error(errutil.ValidationFailed("ttl must be a positive duration"))
			return
		}
		ttl = parsed
	}

	token, err := h.licenses.IssueToken(c.Request.Context(), c.Param("tenant_id"), ttl)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (h *Handlers) ResetQuota(c *gin.Context) {
	if err := h.quota.ResetTenant(c.Request.Context(), c.Param("tenant_id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
