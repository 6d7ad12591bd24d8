package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rentcars/internal/app/policies"
	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
)

const (
	templateBookingConfirmed = "booking_confirmed"
	templateBookingCancelled = "booking_cancelled"
	templatePickupReminder   = "pickup_reminder"
)

// notifyRenter sends the email (always, when an address is known) and the SMS
// (only when the driver gave a phone). Failures are logged and swallowed.
func notifyRenter(ctx context.Context, n policies.Notifier, logger *slog.Logger, b *domainbooking.Booking, car *domaincatalog.Car, template string) {
	if n == nil {
		return
	}
	data := summaryData(b, car)
	subject, body := render(template, data)

	if email := b.NotificationEmail(); email != "" {
		msg := policies.Message{Channel: policies.ChannelEmail, To: email, Subject: subject, Body: body, Template: template, Data: data}
		if err := n.Send(ctx, msg); err != nil {
			logger.WarnContext(ctx, "booking email failed", "booking_id", b.ID, "template", template, "error", err)
		}
	} else {
		logger.WarnContext(ctx, "booking has no email address", "booking_id", b.ID)
	}

	if phone := strings.TrimSpace(b.Driver.Phone); phone != "" {
		msg := policies.Message{Channel: policies.ChannelSMS, To: phone, Body: subject, Template: template, Data: data}
		if err := n.Send(ctx, msg); err != nil {
			logger.WarnContext(ctx, "booking sms failed", "booking_id", b.ID, "template", template, "error", err)
		}
	}
}

func summaryData(b *domainbooking.Booking, car *domaincatalog.Car) map[string]string {
	title := string(b.CarID)
	if car != nil {
		title = car.Title()
	}
	data := map[string]string{
		"booking_id":  string(b.ID),
		"car":         title,
		"driver_name": b.Driver.Name,
		"pickup":      b.Range.CheckIn.Format("Jan 2, 2006 15:04 MST"),
		"return":      b.Range.CheckOut.Format("Jan 2, 2006 15:04 MST"),
		"days":        fmt.Sprint(b.Days),
		"total":       b.Cost.Total.String(),
		"status":      string(b.Status),
	}
	if b.PickupLocation != "" {
		data["pickup_location"] = b.PickupLocation
	}
	if b.Refund.Amount > 0 {
		data["refund"] = b.Refund.String()
	}
	return data
}

func render(template string, data map[string]string) (string, string) {
	switch template {
	case templateBookingCancelled:
		subject := fmt.Sprintf("Booking %s cancelled", data["booking_id"])
		body := fmt.Sprintf("Your booking of %s from %s to %s was cancelled.", data["car"], data["pickup"], data["return"])
		if refund, ok := data["refund"]; ok {
			body += " A refund of " + refund + " is on its way."
		}
		return subject, body
	case templatePickupReminder:
		subject := fmt.Sprintf("Reminder: %s pickup on %s", data["car"], data["pickup"])
		body := fmt.Sprintf("Your rental of %s starts on %s.", data["car"], data["pickup"])
		if loc, ok := data["pickup_location"]; ok {
			body += " Pickup location: " + loc + "."
		}
		return subject, body
	default:
		subject := fmt.Sprintf("Booking %s confirmed", data["booking_id"])
		body := fmt.Sprintf("Your booking of %s from %s to %s (%s days) is confirmed. Total charged: %s.",
			data["car"], data["pickup"], data["return"], data["days"], data["total"])
		return subject, body
	}
}
