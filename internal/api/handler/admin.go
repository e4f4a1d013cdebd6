package handler

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/mealdesk/mealdesk/internal/api/models"
	"github.com/mealdesk/mealdesk/internal/database"
)

// History shows the recorded dashboard activity, optionally for one user.
func (h *Handler) History(c *gin.Context) {
	data := gin.H{"Title": "History", "Events": []database.Event{}}
	if h.history == nil {
		h.render(c, "history.html", data)
		return
	}

	var (
		events []database.Event
		err    error
	)
	if id := strings.TrimSpace(c.Query("whatsapp_id")); id != "" {
		events, err = h.history.GetEventsByWhatsappID(c.Request.Context(), id)
	} else {
		events, err = h.history.GetEvents(c.Request.Context(), historyLimit)
	}
	if err != nil {
		log.Error("Failed to load history", "error", err)
		h.render(c, "history.html", data, "Error loading history. Please try again.")
		return
	}

	data["Events"] = events
	h.render(c, "history.html", data)
}

// Status returns the scheduled jobs and cache statistics.
func (h *Handler) Status(c *gin.Context) {
	res := models.StatusResponse{Jobs: []models.JobStatus{}}
	if h.jobs != nil {
		res.Jobs = models.ToJobStatuses(h.jobs.GetJobs())
	}
	if h.usersCache != nil {
		res.Cache = h.usersCache.GetStats()
	}
	if h.history != nil {
		res.Database = models.DatabaseOK
		if err := h.history.Ping(c.Request.Context()); err != nil {
			log.Error("History database is unavailable", "error", err)
			res.Database = models.DatabaseUnavailable
		}
	}
	c.JSON(http.StatusOK, res)
}

// RunJob manually triggers a scheduled job.
func (h *Handler) RunJob(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "scheduler is disabled"})
		return
	}

	if err := h.jobs.RunJobNow(c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	log.Info("Job triggered", "id", c.Param("id"), "by", actor(c))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Job triggered successfully"})
}

// ClearCache drops the cached user list.
func (h *Handler) ClearCache(c *gin.Context) {
	if h.usersCache == nil {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	if err := h.usersCache.Clear(c.Request.Context()); err != nil {
		log.Error("Failed to clear users cache", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}
	log.Info("Users cache cleared", "by", actor(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
