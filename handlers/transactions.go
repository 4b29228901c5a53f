package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spendapp/spend-api/middleware"
	"github.com/spendapp/spend-api/services"
)

type TransactionsHandler struct {
	Reporting *services.ReportingService
}

func NewTransactionsHandler(reporting *services.ReportingService) *TransactionsHandler {
	return &TransactionsHandler{Reporting: reporting}
}

// List returns the user's transactions for the requested window, newest
// first. time_period is month (default), ytd or year; an explicit
// start/end pair overrides it.
func (h *TransactionsHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	start, end, err := resolveWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txns, err := h.Reporting.GetTransactions(c.Request.Context(), userID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period_start": start,
		"period_end":   end,
		"count":        len(txns),
		"transactions": txns,
	})
}

// Summary returns income, expenses and net for the requested window.
func (h *TransactionsHandler) Summary(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	start, end, err := resolveWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.Reporting.GetSummary(c.Request.Context(), userID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// resolveWindow parses either an explicit start/end date pair (end inclusive)
// or a time_period selector into a half-open [start, end) interval.
func resolveWindow(c *gin.Context) (time.Time, time.Time, error) {
	startStr := c.Query("start")
	endStr := c.Query("end")

	if startStr != "" && endStr == "" {
		return time.Time{}, time.Time{}, errors.New("end is required when start is given")
	}
	if endStr != "" && startStr == "" {
		return time.Time{}, time.Time{}, errors.New("start is required when end is given")
	}

	if startStr != "" && endStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end.AddDate(0, 0, 1), nil
	}

	period := c.DefaultQuery("time_period", "month")
	return services.ResolvePeriod(period, time.Now())
}
