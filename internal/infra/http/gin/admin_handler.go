package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/dto"
	bookingapp "rentcars/internal/app/handlers/booking"
	"rentcars/internal/app/queries"
	"rentcars/internal/domain/auth"
)

type AdminHandler struct {
	Commands       commands.Bus
	Queries        queries.Bus
	ReminderWindow time.Duration
	Logger         *slog.Logger
}

func (h AdminHandler) ListBookings(c *gin.Context) {
	if _, ok := requireRole(c, auth.RoleAdmin); !ok {
		return
	}
	query := bookingapp.ListBookingsQuery{
		Status: c.Query("status"),
		CarID:  c.Query("car_id"),
		Limit:  parseIntWithDefault(c.Query("limit"), 50),
		Offset: parseIntWithDefault(c.Query("offset"), 0),
	}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type transitionRequest struct {
	Action string `json:"action"`
}

func (h AdminHandler) Transition(c *gin.Context) {
	if _, ok := requireRole(c, auth.RoleAdmin); !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.TransitionBookingCommand{BookingID: c.Param("id"), Action: req.Action}
	result, err := commands.Dispatch[bookingapp.TransitionBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) RunReminders(c *gin.Context) {
	if _, ok := requireRole(c, auth.RoleAdmin); !ok {
		return
	}
	cmd := bookingapp.SendPickupRemindersCommand{Window: h.ReminderWindow}
	report, err := commands.Dispatch[bookingapp.SendPickupRemindersCommand, bookingapp.ReminderReport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scanned": report.Scanned, "sent": report.Sent, "failed": report.Failed})
}

var _ AdminHTTP = AdminHandler{}
