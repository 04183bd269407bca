package httpHandler

import (
	"net/http"
	"strconv"

	"github.com/plantCo2/water-device/entities"
	"github.com/plantCo2/water-device/usecases"

	"github.com/gin-gonic/gin"
)

type CommandHandler struct {
	cmdUC  *usecases.CommandsUseCase
	syncUC *usecases.SyncUseCase
}

func NewCommandHandler(cmdUC *usecases.CommandsUseCase, syncUC *usecases.SyncUseCase) *CommandHandler {
	return &CommandHandler{cmdUC: cmdUC, syncUC: syncUC}
}

type valveRequest struct {
	State    *bool  `json:"state" binding:"required"`
	Duration int    `json:"duration"`
	Type     string `json:"type"`
}

// pollResponse is the device contract: settings always, command fields
// only when one was delivered.
type pollResponse struct {
	TimerEnabled     bool                  `json:"timer_enabled"`
	TimerHour        int                   `json:"timer_hour"`
	TimerMinute      int                   `json:"timer_minute"`
	Threshold        int                   `json:"threshold"`
	WateringDuration int                   `json:"watering_duration"`
	ValveState       *bool                 `json:"valve_state,omitempty"`
	Duration         *int                  `json:"duration,omitempty"`
	CommandType      *entities.CommandType `json:"command_type,omitempty"`
}

// POST /api/valve/control
func (h *CommandHandler) ControlValve(c *gin.Context) {
	var req valveRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	cmd, err := h.cmdUC.Submit(c.Request.Context(), *req.State, req.Duration, entities.CommandType(req.Type))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "command_id": cmd.ID})
}

// GET /api/get_commands
// The device polls this for its settings and at most one valve command.
func (h *CommandHandler) Poll(c *gin.Context) {
	res, err := h.syncUC.Poll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := pollResponse{
		TimerEnabled:     res.Settings.TimerEnabled,
		TimerHour:        res.Settings.TimerHour,
		TimerMinute:      res.Settings.TimerMinute,
		Threshold:        res.Settings.MoistureThreshold,
		WateringDuration: res.Settings.WateringDuration,
	}
	if cmd := res.Command; cmd != nil {
		out.ValveState = &cmd.ValveState
		out.Duration = &cmd.Duration
		out.CommandType = &cmd.CommandType
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/commands/pending
func (h *CommandHandler) GetPending(c *gin.Context) {
	cmds, err := h.cmdUC.Pending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cmds, "count": len(cmds)})
}

// GET /api/commands?limit=50
func (h *CommandHandler) GetRecent(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 {
			respondError(c, usecases.NewValidationError("limit", "must be a positive integer"))
			return
		}
		limit = v
	}

	cmds, err := h.cmdUC.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cmds, "count": len(cmds)})
}
