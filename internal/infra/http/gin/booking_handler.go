package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/dto"
	bookingapp "rentcars/internal/app/handlers/booking"
	"rentcars/internal/app/queries"
	"rentcars/internal/domain/shared/daterange"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type quoteRequest struct {
	CarID      string `json:"car_id"`
	PickupDate string `json:"pickup_date"`
	ReturnDate string `json:"return_date"`
	Insurance  bool   `json:"insurance"`
	Email      string `json:"email"`
}

func (h BookingHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	dr, err := daterange.Parse(req.PickupDate, req.ReturnDate)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	email := req.Email
	if p, ok := currentPrincipal(c); ok && strings.TrimSpace(email) == "" {
		email = p.Email
	}
	cmd := bookingapp.RequestQuoteCommand{
		CarID:           req.CarID,
		PickupDate:      dr.CheckIn,
		ReturnDate:      dr.CheckOut,
		Insurance:       req.Insurance,
		RequesterEmail:  email,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.RequestQuoteCommand, *dto.Quote](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type confirmRequest struct {
	AuthorizationID  string               `json:"authorization_id"`
	CarID            string               `json:"car_id"`
	PickupDate       string               `json:"pickup_date"`
	ReturnDate       string               `json:"return_date"`
	PickupLocation   string               `json:"pickup_location"`
	ReturnLocation   string               `json:"return_location"`
	Driver           dto.Driver           `json:"driver"`
	EmergencyContact dto.EmergencyContact `json:"emergency_contact"`
	SpecialRequests  string               `json:"special_requests"`
	CostBreakdown    *dto.CostBreakdown   `json:"cost_breakdown"`
}

func (h BookingHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pickup, err := optionalDate(req.PickupDate)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	dropoff, err := optionalDate(req.ReturnDate)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{
		AuthorizationID: req.AuthorizationID,
		Draft: bookingapp.BookingDraft{
			CarID:                 req.CarID,
			PickupDate:            pickup,
			ReturnDate:            dropoff,
			PickupLocation:        req.PickupLocation,
			ReturnLocation:        req.ReturnLocation,
			DriverName:            req.Driver.Name,
			DriverEmail:           req.Driver.Email,
			DriverPhone:           req.Driver.Phone,
			DriverLicense:         req.Driver.LicenseNumber,
			EmergencyName:         req.EmergencyContact.Name,
			EmergencyPhone:        req.EmergencyContact.Phone,
			EmergencyRelationship: req.EmergencyContact.Relation,
			SpecialRequests:       req.SpecialRequests,
			CostBreakdown:         req.CostBreakdown,
		},
	}
	if p, ok := currentPrincipal(c); ok {
		cmd.RenterID = p.UserID
	}
	result, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	query := bookingapp.GetBookingQuery{
		BookingID:       c.Param("id"),
		AuthorizationID: c.Query("authorization_id"),
	}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelRequest struct {
	Reason          string `json:"reason"`
	AuthorizationID string `json:"authorization_id"`
}

func (h BookingHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:       c.Param("id"),
		Reason:          req.Reason,
		AuthorizationID: req.AuthorizationID,
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Cancellation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Mine(c *gin.Context) {
	if _, ok := requireRole(c, ""); !ok {
		return
	}
	result, err := queries.Ask[bookingapp.ListMyBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, bookingapp.ListMyBookingsQuery{})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func optionalDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return daterange.ParseDate(raw)
}

var _ BookingHTTP = BookingHandler{}
