package dto

import (
	"time"

	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	domainpricing "rentcars/internal/domain/pricing"
	"rentcars/internal/domain/shared/money"
)

// MoneyDTO carries amounts in minor units.
type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type CostBreakdown struct {
	Subtotal     MoneyDTO `json:"subtotal"`
	Tax          MoneyDTO `json:"tax"`
	Deposit      MoneyDTO `json:"deposit"`
	InsuranceFee MoneyDTO `json:"insurance_fee"`
	Total        MoneyDTO `json:"total"`
}

type CarSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Category     string   `json:"category,omitempty"`
	Location     string   `json:"location,omitempty"`
	PricePerDay  MoneyDTO `json:"price_per_day"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
}

type Quote struct {
	AuthorizationID string        `json:"authorization_id"`
	ClientHandle    string        `json:"client_handle"`
	PaymentStatus   string        `json:"payment_status"`
	Car             CarSummary    `json:"car"`
	PickupDate      time.Time     `json:"pickup_date"`
	ReturnDate      time.Time     `json:"return_date"`
	Days            int           `json:"days"`
	Insurance       bool          `json:"insurance"`
	CostBreakdown   CostBreakdown `json:"cost_breakdown"`
}

type Driver struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
}

type EmergencyContact struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Relation string `json:"relation,omitempty"`
}

type Booking struct {
	ID                     string           `json:"id"`
	RenterID               string           `json:"renter_id,omitempty"`
	CarID                  string           `json:"car_id"`
	PickupDate             time.Time        `json:"pickup_date"`
	ReturnDate             time.Time        `json:"return_date"`
	PickupLocation         string           `json:"pickup_location,omitempty"`
	ReturnLocation         string           `json:"return_location,omitempty"`
	Days                   int              `json:"days"`
	Insurance              bool             `json:"insurance"`
	CostBreakdown          CostBreakdown    `json:"cost_breakdown"`
	PaymentAuthorizationID string           `json:"payment_authorization_id"`
	PaymentStatus          string           `json:"payment_status"`
	Status                 string           `json:"status"`
	Driver                 Driver           `json:"driver"`
	EmergencyContact       EmergencyContact `json:"emergency_contact"`
	SpecialRequests        string           `json:"special_requests,omitempty"`
	CancellationReason     string           `json:"cancellation_reason,omitempty"`
	Refund                 *MoneyDTO        `json:"refund,omitempty"`
	CanCancel              bool             `json:"can_cancel"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

type BookingCollection struct {
	Items []Booking       `json:"items"`
	Meta  *CollectionMeta `json:"meta,omitempty"`
}

type CollectionMeta struct {
	Total  int `json:"total"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type Cancellation struct {
	BookingID     string   `json:"booking_id"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"payment_status"`
	Refund        MoneyDTO `json:"refund"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func (m MoneyDTO) Money() money.Money {
	return money.Money{Amount: m.Amount, Currency: m.Currency}
}

func MapCostBreakdown(c domainpricing.CostBreakdown) CostBreakdown {
	return CostBreakdown{
		Subtotal:     MapMoney(c.Subtotal),
		Tax:          MapMoney(c.Tax),
		Deposit:      MapMoney(c.Deposit),
		InsuranceFee: MapMoney(c.InsuranceFee),
		Total:        MapMoney(c.Total),
	}
}

// Domain converts a client supplied breakdown back into domain values.
func (c CostBreakdown) Domain() domainpricing.CostBreakdown {
	return domainpricing.CostBreakdown{
		Subtotal:     c.Subtotal.Money(),
		Tax:          c.Tax.Money(),
		Deposit:      c.Deposit.Money(),
		InsuranceFee: c.InsuranceFee.Money(),
		Total:        c.Total.Money(),
	}
}

func MapCarSummary(car *domaincatalog.Car) CarSummary {
	if car == nil {
		return CarSummary{}
	}
	return CarSummary{
		ID:           string(car.ID),
		Title:        car.Title(),
		Category:     car.Category,
		Location:     car.Location,
		PricePerDay:  MapMoney(car.PricePerDay),
		ThumbnailURL: car.ThumbnailURL,
	}
}

func MapBooking(b *domainbooking.Booking, now time.Time) Booking {
	out := Booking{
		ID:                     string(b.ID),
		RenterID:               b.RenterID,
		CarID:                  string(b.CarID),
		PickupDate:             b.Range.CheckIn,
		ReturnDate:             b.Range.CheckOut,
		PickupLocation:         b.PickupLocation,
		ReturnLocation:         b.ReturnLocation,
		Days:                   b.Days,
		Insurance:              b.Insurance,
		CostBreakdown:          MapCostBreakdown(b.Cost),
		PaymentAuthorizationID: b.PaymentAuthorizationID,
		PaymentStatus:          string(b.PaymentStatus),
		Status:                 string(b.Status),
		Driver: Driver{
			Name:          b.Driver.Name,
			Email:         b.Driver.Email,
			Phone:         b.Driver.Phone,
			LicenseNumber: b.Driver.LicenseNumber,
		},
		EmergencyContact: EmergencyContact{
			Name:     b.EmergencyContact.Name,
			Phone:    b.EmergencyContact.Phone,
			Relation: b.EmergencyContact.Relation,
		},
		SpecialRequests:    b.SpecialRequests,
		CancellationReason: b.CancellationReason,
		CanCancel:          b.CanCancel(now),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if b.Refund.Amount > 0 {
		refund := MapMoney(b.Refund)
		out.Refund = &refund
	}
	return out
}

func MapBookings(items []*domainbooking.Booking, now time.Time) []Booking {
	out := make([]Booking, 0, len(items))
	for _, b := range items {
		out = append(out, MapBooking(b, now))
	}
	return out
}
