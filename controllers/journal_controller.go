package controllers

import (
	"crowned-trader/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JournalController serves the daily selection journal
type JournalController struct {
	journal *services.SelectionJournal
}

// NewJournalController creates a new journal controller
func NewJournalController(journal *services.SelectionJournal) *JournalController {
	return &JournalController{
		journal: journal,
	}
}

// HandleGetToday returns the current day's journal
func (jc *JournalController) HandleGetToday(c *gin.Context) {
	log, err := jc.journal.GetCurrentLog()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, log)
}

// HandleGetByDate returns the journal for a specific date
func (jc *JournalController) HandleGetByDate(c *gin.Context) {
	date := c.Param("date")

	log, err := jc.journal.GetLogForDate(date)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, log)
}

// HandleListDates returns the dates that have a journal
func (jc *JournalController) HandleListDates(c *gin.Context) {
	dates, err := jc.journal.ListAvailableLogs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dates": dates,
		"count": len(dates),
	})
}
