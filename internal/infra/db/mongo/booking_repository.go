package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	domainpricing "rentcars/internal/domain/pricing"
	domainrange "rentcars/internal/domain/shared/daterange"
	"rentcars/internal/domain/shared/money"
)

// BookingRepository stores bookings in agg_booking. The unique index on
// payment_authorization_id is what keeps confirmations exactly-once.
type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(ctx context.Context, db *mongo.Database) (*BookingRepository, error) {
	col := db.Collection("agg_booking")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "payment_authorization_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_payment_authorization")},
		{Keys: bson.D{{Key: "renter_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "car_id", Value: 1}, {Key: "range.pickup", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "range.pickup", Value: 1}}},
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return &BookingRepository{col: col}, nil
}

func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrDuplicateBooking
		}
		return wrapErr(err)
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *BookingRepository) ByPaymentAuthorization(ctx context.Context, authorizationID string) (*domainbooking.Booking, error) {
	return r.findOne(ctx, bson.M{"payment_authorization_id": authorizationID})
}

func (r *BookingRepository) findOne(ctx context.Context, filter bson.M) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, wrapErr(err)
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"renter_id": renterID}, opts)
}

func (r *BookingRepository) List(ctx context.Context, params domainbooking.ListParams) ([]*domainbooking.Booking, int, error) {
	filter := bson.M{}
	if params.Status != "" {
		filter["status"] = string(params.Status)
	}
	if params.CarID != "" {
		filter["car_id"] = string(params.CarID)
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapErr(err)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if params.Offset > 0 {
		opts.SetSkip(int64(params.Offset))
	}
	if params.Limit > 0 {
		opts.SetLimit(int64(params.Limit))
	}
	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

// ListOverlapping returns bookings of the car whose range intersects dr.
func (r *BookingRepository) ListOverlapping(ctx context.Context, carID domaincatalog.CarID, dr domainrange.DateRange) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"car_id":       string(carID),
		"range.pickup": bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"range.return": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
	return r.find(ctx, filter, options.Find())
}

func (r *BookingRepository) ListPickupsBetween(ctx context.Context, from, to time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":       string(domainbooking.StatusConfirmed),
		"range.pickup": bson.M{"$gte": from.UnixMilli(), "$lt": to.UnixMilli()},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.pickup", Value: 1}}))
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr(err)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrapErr(err)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

// Save replaces the stored booking when its version still matches.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return wrapErr(err)
	}
	if res.MatchedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

type bookingDocument struct {
	ID                     string         `bson:"_id"`
	RenterID               string         `bson:"renter_id,omitempty"`
	CarID                  string         `bson:"car_id"`
	Range                  rangeDocument  `bson:"range"`
	PickupLocation         string         `bson:"pickup_location,omitempty"`
	ReturnLocation         string         `bson:"return_location,omitempty"`
	Days                   int            `bson:"days"`
	Cost                   costDocument   `bson:"cost"`
	Insurance              bool           `bson:"insurance"`
	PaymentAuthorizationID string         `bson:"payment_authorization_id"`
	PaymentStatus          string         `bson:"payment_status"`
	Status                 string         `bson:"status"`
	Driver                 driverDocument `bson:"driver"`
	Emergency              contactDoc     `bson:"emergency_contact"`
	SpecialRequests        string         `bson:"special_requests,omitempty"`
	RequesterEmail         string         `bson:"requester_email,omitempty"`
	Policy                 policyDocument `bson:"policy"`
	CancellationReason     string         `bson:"cancellation_reason,omitempty"`
	RefundCents            int64          `bson:"refund_cents"`
	CreatedAt              int64          `bson:"created_at"`
	UpdatedAt              int64          `bson:"updated_at"`
	CancelledAt            int64          `bson:"cancelled_at,omitempty"`
	RefundIssuedAt         int64          `bson:"refund_issued_at,omitempty"`
	ReminderSentAt         int64          `bson:"reminder_sent_at,omitempty"`
	Version                int64          `bson:"version"`
}

type rangeDocument struct {
	Pickup int64 `bson:"pickup"`
	Return int64 `bson:"return"`
}

type costDocument struct {
	Currency     string `bson:"currency"`
	Subtotal     int64  `bson:"subtotal"`
	Tax          int64  `bson:"tax"`
	Deposit      int64  `bson:"deposit"`
	InsuranceFee int64  `bson:"insurance_fee"`
	Total        int64  `bson:"total"`
}

type driverDocument struct {
	Name    string `bson:"name,omitempty"`
	Email   string `bson:"email,omitempty"`
	Phone   string `bson:"phone,omitempty"`
	License string `bson:"license,omitempty"`
}

type contactDoc struct {
	Name     string `bson:"name,omitempty"`
	Phone    string `bson:"phone,omitempty"`
	Relation string `bson:"relation,omitempty"`
}

type policyDocument struct {
	CutoffSeconds     int64 `bson:"cutoff_seconds"`
	FullRefundSeconds int64 `bson:"full_refund_seconds"`
	PartialRefundBps  int64 `bson:"partial_refund_bps"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:             string(b.ID),
		RenterID:       b.RenterID,
		CarID:          string(b.CarID),
		Range:          rangeDocument{Pickup: b.Range.CheckIn.UnixMilli(), Return: b.Range.CheckOut.UnixMilli()},
		PickupLocation: b.PickupLocation,
		ReturnLocation: b.ReturnLocation,
		Days:           b.Days,
		Cost: costDocument{
			Currency:     b.Cost.Total.Currency,
			Subtotal:     b.Cost.Subtotal.Amount,
			Tax:          b.Cost.Tax.Amount,
			Deposit:      b.Cost.Deposit.Amount,
			InsuranceFee: b.Cost.InsuranceFee.Amount,
			Total:        b.Cost.Total.Amount,
		},
		Insurance:              b.Insurance,
		PaymentAuthorizationID: b.PaymentAuthorizationID,
		PaymentStatus:          string(b.PaymentStatus),
		Status:                 string(b.Status),
		Driver:                 driverDocument{Name: b.Driver.Name, Email: b.Driver.Email, Phone: b.Driver.Phone, License: b.Driver.LicenseNumber},
		Emergency:              contactDoc{Name: b.EmergencyContact.Name, Phone: b.EmergencyContact.Phone, Relation: b.EmergencyContact.Relation},
		SpecialRequests:        b.SpecialRequests,
		RequesterEmail:         b.RequesterEmail,
		Policy: policyDocument{
			CutoffSeconds:     int64(b.Policy.CancellationCutoff / time.Second),
			FullRefundSeconds: int64(b.Policy.FullRefundBefore / time.Second),
			PartialRefundBps:  b.Policy.PartialRefundBps,
		},
		CancellationReason: b.CancellationReason,
		RefundCents:        b.Refund.Amount,
		CreatedAt:          b.CreatedAt.UnixMilli(),
		UpdatedAt:          b.UpdatedAt.UnixMilli(),
		CancelledAt:        optionalMillis(b.CancelledAt),
		RefundIssuedAt:     optionalMillis(b.RefundIssuedAt),
		ReminderSentAt:     optionalMillis(b.ReminderSentAt),
		Version:            b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	cents := func(v int64) money.Money { return money.Money{Amount: v, Currency: d.Cost.Currency} }
	return &domainbooking.Booking{
		ID:             domainbooking.BookingID(d.ID),
		RenterID:       d.RenterID,
		CarID:          domaincatalog.CarID(d.CarID),
		Range:          domainrange.DateRange{CheckIn: timestampToTime(d.Range.Pickup), CheckOut: timestampToTime(d.Range.Return)},
		PickupLocation: d.PickupLocation,
		ReturnLocation: d.ReturnLocation,
		Days:           d.Days,
		Cost: domainpricing.CostBreakdown{
			Subtotal:     cents(d.Cost.Subtotal),
			Tax:          cents(d.Cost.Tax),
			Deposit:      cents(d.Cost.Deposit),
			InsuranceFee: cents(d.Cost.InsuranceFee),
			Total:        cents(d.Cost.Total),
		},
		Insurance:              d.Insurance,
		PaymentAuthorizationID: d.PaymentAuthorizationID,
		PaymentStatus:          domainbooking.PaymentStatus(d.PaymentStatus),
		Status:                 domainbooking.Status(d.Status),
		Driver:                 domainbooking.Driver{Name: d.Driver.Name, Email: d.Driver.Email, Phone: d.Driver.Phone, LicenseNumber: d.Driver.License},
		EmergencyContact:       domainbooking.EmergencyContact{Name: d.Emergency.Name, Phone: d.Emergency.Phone, Relation: d.Emergency.Relation},
		SpecialRequests:        d.SpecialRequests,
		RequesterEmail:         d.RequesterEmail,
		Policy: domainbooking.RefundPolicy{
			CancellationCutoff: time.Duration(d.Policy.CutoffSeconds) * time.Second,
			FullRefundBefore:   time.Duration(d.Policy.FullRefundSeconds) * time.Second,
			PartialRefundBps:   d.Policy.PartialRefundBps,
		},
		CancellationReason: d.CancellationReason,
		Refund:             cents(d.RefundCents),
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		CancelledAt:        optionalTime(d.CancelledAt),
		RefundIssuedAt:     optionalTime(d.RefundIssuedAt),
		ReminderSentAt:     optionalTime(d.ReminderSentAt),
		Version:            d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func optionalMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func optionalTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return timestampToTime(ms)
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
