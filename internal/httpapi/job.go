package httpapi

import (
	"net/http"
	"strconv"

	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/pkg/middleware"
	"licensing-controlplane/services/job"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) StartJob(c *gin.Context) {
	val := middleware.ValidatedLicense(c)

	var req job.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	j, err := h.jobs.Start(c.Request.Context(), val, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

func (h *Handlers) FinishJob(c *gin.Context) {
	val := middleware.ValidatedLicense(c)

	var req job.FinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid request body", errutil.WithErr(err)))
		return
	}

	j, err := h.jobs.Finish(c.Request.Context(), val.TenantID, c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *Handlers) ListJobs(c *gin.Context) {
	val := middleware.ValidatedLicense(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	jobs, err := h.jobs.List(c.Request.Context(), val.TenantID, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *Handlers) JobHistory(c *gin.Context) {
	val := middleware.ValidatedLicense(c)

	history, err := h.jobs.History(c.Request.Context(), val.TenantID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": history})
}
