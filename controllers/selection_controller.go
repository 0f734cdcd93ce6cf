package controllers

import (
	"crowned-trader/database"
	"crowned-trader/interfaces"
	"crowned-trader/models"
	"crowned-trader/selector"
	"crowned-trader/services"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxBatchSignals = 50

// SelectionReader reads back stored selection outcomes
type SelectionReader interface {
	GetSelection(selectionID string) (*models.DBSelection, error)
	ListSelections(filter database.SelectionFilter) ([]*models.DBSelection, error)
}

// SelectionController handles signal-to-contract selection endpoints
type SelectionController struct {
	contractService *services.ContractService
	selections      SelectionReader
}

// NewSelectionController creates a new selection controller
func NewSelectionController(contractService *services.ContractService, selections SelectionReader) *SelectionController {
	return &SelectionController{
		contractService: contractService,
		selections:      selections,
	}
}

// SignalRequest is the wire form of a trading signal
type SignalRequest struct {
	Underlying string `json:"underlying" binding:"required"`
	Direction  string `json:"direction" binding:"required"`
	Strategy   string `json:"strategy" binding:"required"`
}

func (r SignalRequest) toSignal() (interfaces.Signal, error) {
	direction, err := interfaces.ParseDirection(r.Direction)
	if err != nil {
		return interfaces.Signal{}, err
	}
	strategy, err := interfaces.ParseStrategy(r.Strategy)
	if err != nil {
		return interfaces.Signal{}, err
	}
	return interfaces.Signal{
		Underlying: r.Underlying,
		Direction:  direction,
		Strategy:   strategy,
	}, nil
}

// HandleSelect selects a contract for a single signal
// POST /api/v1/signals/select
func (sc *SelectionController) HandleSelect(c *gin.Context) {
	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	signal, err := req.toSignal()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid signal",
			"details": err.Error(),
		})
		return
	}

	result, err := sc.contractService.SelectForSignal(c.Request.Context(), signal)
	if err != nil {
		c.JSON(statusForError(err), result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleSelectBatch selects contracts for several signals at once.
// Per-signal failures are reported inside the results.
// POST /api/v1/signals/select/batch
func (sc *SelectionController) HandleSelectBatch(c *gin.Context) {
	var req struct {
		Signals []SignalRequest `json:"signals" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	if len(req.Signals) > maxBatchSignals {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Too many signals, maximum is " + strconv.Itoa(maxBatchSignals),
		})
		return
	}

	signals := make([]interfaces.Signal, 0, len(req.Signals))
	for i, r := range req.Signals {
		signal, err := r.toSignal()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid signal at index " + strconv.Itoa(i),
				"details": err.Error(),
			})
			return
		}
		signals = append(signals, signal)
	}

	results := sc.contractService.SelectBatch(c.Request.Context(), signals)

	selected := 0
	for _, r := range results {
		if r.Status == models.SelectionStatusSelected {
			selected++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(results),
		"selected": selected,
		"results":  results,
	})
}

// HandleGetSelection retrieves a stored selection
// GET /api/v1/selections/:id
func (sc *SelectionController) HandleGetSelection(c *gin.Context) {
	selectionID := c.Param("id")
	if selectionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "selection ID required",
		})
		return
	}

	selection, err := sc.selections.GetSelection(selectionID)
	if errors.Is(err, database.ErrSelectionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Selection not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get selection",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, selection)
}

// HandleListSelections lists stored selections, newest first
// GET /api/v1/selections?underlying=AAPL&strategy=swing&status=SELECTED&limit=20
func (sc *SelectionController) HandleListSelections(c *gin.Context) {
	filter := database.SelectionFilter{
		Underlying: c.Query("underlying"),
		Status:     c.Query("status"),
	}
	if s := c.Query("strategy"); s != "" {
		strategy, err := interfaces.ParseStrategy(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Strategy = string(strategy)
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		filter.Limit = limit
	}

	selections, err := sc.selections.ListSelections(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list selections",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":      len(selections),
		"selections": selections,
	})
}

// HandleGetPolicies returns the strategy policy table
// GET /api/v1/policies
func (sc *SelectionController) HandleGetPolicies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"policies": selector.Policies(),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, selector.ErrInvalidSignal), errors.Is(err, selector.ErrInvalidChain):
		return http.StatusBadRequest
	case errors.Is(err, selector.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, selector.ErrStaleChain):
		return http.StatusServiceUnavailable
	case errors.Is(err, selector.ErrNotFound), errors.Is(err, selector.ErrNoExpirationInWindow):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
