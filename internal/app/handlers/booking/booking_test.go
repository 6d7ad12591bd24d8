package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcars/internal/app/dto"
	handlers "rentcars/internal/app/handlers/booking"
	"rentcars/internal/app/policies"
	"rentcars/internal/domain/auth"
	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	"rentcars/internal/domain/payment"
	"rentcars/internal/domain/pricing"
	"rentcars/internal/domain/shared/daterange"
	"rentcars/internal/domain/shared/money"
	"rentcars/internal/infra/storage/memory"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []policies.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg policies.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) channels() []policies.Channel {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]policies.Channel, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Channel)
	}
	return out
}

type receiptArchiveFunc func(ctx context.Context, r policies.Receipt) (string, error)

func (f receiptArchiveFunc) Archive(ctx context.Context, r policies.Receipt) (string, error) {
	return f(ctx, r)
}

type fixture struct {
	cars     *memory.CarRepository
	bookings *memory.BookingRepository
	gateway  *memory.SandboxGateway
	outbox   *memory.Outbox
	notifier *recordingNotifier
	receipts []policies.Receipt

	quote   *handlers.RequestQuoteHandler
	confirm *handlers.ConfirmBookingHandler
	cancel  *handlers.CancelBookingHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cars:     memory.NewCarRepository(),
		bookings: memory.NewBookingRepository(),
		gateway:  memory.NewSandboxGateway(),
		outbox:   memory.NewOutbox(),
		notifier: &recordingNotifier{},
	}
	ctx := context.Background()
	for _, c := range []domaincatalog.CreateCarParams{
		{ID: "car-1", Make: "Tesla", Model: "Model 3", Year: 2023, PricePerDay: money.Must(10000, "USD"), Available: true},
		{ID: "car-off", Make: "Ford", Model: "Transit", PricePerDay: money.Must(9000, "USD"), Available: false},
	} {
		c.Now = now
		car, err := domaincatalog.NewCar(c)
		require.NoError(t, err)
		require.NoError(t, f.cars.Save(ctx, car))
	}
	clock := func() time.Time { return now }
	f.quote = &handlers.RequestQuoteHandler{
		Cars:         f.cars,
		Bookings:     f.bookings,
		Pricing:      policies.PolicyPricing{},
		Payments:     f.gateway,
		CheckOverlap: true,
	}
	var mu sync.Mutex
	f.confirm = &handlers.ConfirmBookingHandler{
		Payments: f.gateway,
		Bookings: f.bookings,
		Cars:     f.cars,
		Outbox:   f.outbox,
		Notifier: f.notifier,
		Receipts: receiptArchiveFunc(func(_ context.Context, r policies.Receipt) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			f.receipts = append(f.receipts, r)
			return "receipts/" + r.BookingID + ".pdf", nil
		}),
		Clock: clock,
	}
	f.cancel = &handlers.CancelBookingHandler{
		Bookings: f.bookings,
		Refunds:  f.gateway,
		Outbox:   f.outbox,
		Notifier: f.notifier,
		Clock:    clock,
	}
	return f
}

func quoteCmd(pickupIn time.Duration, days int) handlers.RequestQuoteCommand {
	pickup := now.Add(pickupIn)
	return handlers.RequestQuoteCommand{
		CarID:          "car-1",
		PickupDate:     pickup,
		ReturnDate:     pickup.Add(time.Duration(days) * 24 * time.Hour),
		Insurance:      true,
		RequesterEmail: "requester@example.com",
	}
}

// paidQuote issues a quote and completes its payment.
func (f *fixture) paidQuote(t *testing.T, pickupIn time.Duration) *dto.Quote {
	t.Helper()
	q, err := f.quote.Handle(context.Background(), quoteCmd(pickupIn, 3))
	require.NoError(t, err)
	require.NoError(t, f.gateway.Complete(q.AuthorizationID))
	return q
}

func (f *fixture) confirmed(t *testing.T, ctx context.Context, pickupIn time.Duration, renterID string) *dto.Booking {
	t.Helper()
	q := f.paidQuote(t, pickupIn)
	b, err := f.confirm.Handle(ctx, handlers.ConfirmBookingCommand{
		AuthorizationID: q.AuthorizationID,
		RenterID:        renterID,
		Draft:           handlers.BookingDraft{DriverName: "Ann Driver", DriverEmail: "ann@example.com"},
	})
	require.NoError(t, err)
	return b
}

func TestRequestQuote_PricesAndAuthorizes(t *testing.T) {
	f := newFixture(t)

	q, err := f.quote.Handle(context.Background(), quoteCmd(72*time.Hour, 3))
	require.NoError(t, err)

	assert.Equal(t, 3, q.Days)
	assert.Equal(t, int64(30000), q.CostBreakdown.Subtotal.Amount)
	assert.Equal(t, int64(4500), q.CostBreakdown.InsuranceFee.Amount)
	assert.Equal(t, int64(2760), q.CostBreakdown.Tax.Amount)
	assert.Equal(t, int64(5000), q.CostBreakdown.Deposit.Amount)
	assert.Equal(t, int64(42260), q.CostBreakdown.Total.Amount)
	assert.NotEmpty(t, q.ClientHandle)
	assert.Equal(t, "Tesla Model 3 (2023)", q.Car.Title)

	authz, err := f.gateway.Retrieve(context.Background(), q.AuthorizationID)
	require.NoError(t, err)
	assert.Equal(t, money.Must(42260, "USD"), authz.Amount)
	assert.Equal(t, "car-1", authz.Metadata[payment.MetaCarID])
	assert.Equal(t, "requester@example.com", authz.Metadata[payment.MetaRequesterEmail])
	assert.Equal(t, "true", authz.Metadata[payment.MetaInsurance])

	mine, _, err := f.bookings.List(context.Background(), domainbooking.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, mine, "quotes never create bookings")
}

func TestRequestQuote_RejectionsMakeNoGatewayCall(t *testing.T) {
	cases := []struct {
		name string
		cmd  func() handlers.RequestQuoteCommand
		want error
	}{
		{"unknown car", func() handlers.RequestQuoteCommand {
			c := quoteCmd(72*time.Hour, 3)
			c.CarID = "missing"
			return c
		}, domaincatalog.ErrCarNotFound},
		{"unavailable car", func() handlers.RequestQuoteCommand {
			c := quoteCmd(72*time.Hour, 3)
			c.CarID = "car-off"
			return c
		}, domaincatalog.ErrCarUnavailable},
		{"same day return", func() handlers.RequestQuoteCommand {
			c := quoteCmd(72*time.Hour, 3)
			c.ReturnDate = c.PickupDate
			return c
		}, daterange.ErrInvalidRange},
		{"return before pickup", func() handlers.RequestQuoteCommand {
			c := quoteCmd(72*time.Hour, 3)
			c.ReturnDate = c.PickupDate.Add(-24 * time.Hour)
			return c
		}, daterange.ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.quote.Handle(context.Background(), tc.cmd())
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 0, f.gateway.Count())
			assert.Equal(t, domainbooking.FailureRetrySafe, domainbooking.Classify(err))
		})
	}
}

func TestRequestQuote_UnchargeableCarsAreRetrySafe(t *testing.T) {
	f := newFixture(t)
	f.quote.Pricing = policies.PolicyPricing{Policy: pricing.DefaultPolicy("USD")}
	for _, c := range []domaincatalog.CreateCarParams{
		{ID: "car-free", Make: "Fiat", Model: "Panda", PricePerDay: money.Must(0, "USD"), Available: true, Now: now},
		{ID: "car-eur", Make: "Renault", Model: "Clio", PricePerDay: money.Must(5000, "EUR"), Available: true, Now: now},
	} {
		car, err := domaincatalog.NewCar(c)
		require.NoError(t, err)
		require.NoError(t, f.cars.Save(context.Background(), car))
	}

	free := quoteCmd(72*time.Hour, 3)
	free.CarID = "car-free"
	free.Insurance = false
	_, err := f.quote.Handle(context.Background(), free)
	assert.ErrorIs(t, err, payment.ErrAmountNotPayable)
	assert.Equal(t, domainbooking.FailureRetrySafe, domainbooking.Classify(err))

	eur := quoteCmd(72*time.Hour, 3)
	eur.CarID = "car-eur"
	_, err = f.quote.Handle(context.Background(), eur)
	assert.ErrorIs(t, err, pricing.ErrUnsupportedCurrency)
	assert.Equal(t, domainbooking.FailureRetrySafe, domainbooking.Classify(err))

	assert.Equal(t, 0, f.gateway.Count())

	// insurance alone is still chargeable on a free car
	free.Insurance = true
	q, err := f.quote.Handle(context.Background(), free)
	require.NoError(t, err)
	assert.Equal(t, int64(4860), q.CostBreakdown.Total.Amount)
}

func TestRequestQuote_OverlapCheck(t *testing.T) {
	f := newFixture(t)
	f.confirmed(t, context.Background(), 72*time.Hour, "")
	before := f.gateway.Count()

	_, err := f.quote.Handle(context.Background(), quoteCmd(96*time.Hour, 2))
	assert.ErrorIs(t, err, domainbooking.ErrDatesUnavailable)
	assert.Equal(t, before, f.gateway.Count())

	f.quote.CheckOverlap = false
	_, err = f.quote.Handle(context.Background(), quoteCmd(96*time.Hour, 2))
	assert.NoError(t, err)

	_, err = f.quote.Handle(context.Background(), quoteCmd(30*24*time.Hour, 2))
	assert.NoError(t, err)
}

func TestConfirmBooking_CreatesExactlyOne(t *testing.T) {
	f := newFixture(t)
	q := f.paidQuote(t, 72*time.Hour)
	cmd := handlers.ConfirmBookingCommand{
		AuthorizationID: q.AuthorizationID,
		Draft: handlers.BookingDraft{
			CarID:         "car-1",
			PickupDate:    q.PickupDate,
			ReturnDate:    q.ReturnDate,
			DriverName:    "Ann Driver",
			DriverEmail:   "ann@example.com",
			DriverPhone:   "+15550100",
			CostBreakdown: &q.CostBreakdown,
		},
	}

	b, err := f.confirm.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusConfirmed), b.Status)
	assert.Equal(t, string(domainbooking.PaymentPaid), b.PaymentStatus)
	assert.Equal(t, int64(42260), b.CostBreakdown.Total.Amount)
	assert.Equal(t, q.AuthorizationID, b.PaymentAuthorizationID)
	assert.True(t, b.CanCancel)

	_, err = f.confirm.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainbooking.ErrDuplicateBooking)
	assert.Equal(t, domainbooking.FailureContactSupport, domainbooking.Classify(err))

	all, total, err := f.bookings.List(context.Background(), domainbooking.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, all, 1)

	assert.Equal(t, []policies.Channel{policies.ChannelEmail, policies.ChannelSMS}, f.notifier.channels())
	assert.Equal(t, "ann@example.com", f.notifier.sent[0].To)
	require.Len(t, f.receipts, 1)
	assert.Equal(t, "Tesla Model 3 (2023)", f.receipts[0].CarTitle)

	records := f.outbox.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "booking.confirmed", records[0].Name)
}

func TestConfirmBooking_ConcurrentCallsOneWins(t *testing.T) {
	f := newFixture(t)
	q := f.paidQuote(t, 72*time.Hour)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.confirm.Handle(context.Background(), handlers.ConfirmBookingCommand{AuthorizationID: q.AuthorizationID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domainbooking.ErrDuplicateBooking)
	}
	assert.Equal(t, 1, succeeded)
	_, total, err := f.bookings.List(context.Background(), domainbooking.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestConfirmBooking_PaymentNotCompleted(t *testing.T) {
	f := newFixture(t)
	q, err := f.quote.Handle(context.Background(), quoteCmd(72*time.Hour, 3))
	require.NoError(t, err)

	_, err = f.confirm.Handle(context.Background(), handlers.ConfirmBookingCommand{AuthorizationID: q.AuthorizationID})
	assert.ErrorIs(t, err, domainbooking.ErrPaymentNotCompleted)
	assert.Equal(t, domainbooking.FailureContactSupport, domainbooking.Classify(err))

	require.NoError(t, f.gateway.Fail(q.AuthorizationID))
	_, err = f.confirm.Handle(context.Background(), handlers.ConfirmBookingCommand{AuthorizationID: q.AuthorizationID})
	assert.ErrorIs(t, err, domainbooking.ErrPaymentNotCompleted)

	_, total, _ := f.bookings.List(context.Background(), domainbooking.ListParams{})
	assert.Zero(t, total)
	assert.Empty(t, f.notifier.sent)
}

func TestConfirmBooking_UnknownAuthorization(t *testing.T) {
	f := newFixture(t)
	_, err := f.confirm.Handle(context.Background(), handlers.ConfirmBookingCommand{AuthorizationID: "pi_nope"})
	assert.ErrorIs(t, err, payment.ErrAuthorizationNotFound)
}

func TestConfirmBooking_TamperedDraftRejected(t *testing.T) {
	f := newFixture(t)
	q := f.paidQuote(t, 72*time.Hour)

	tampered := q.CostBreakdown
	tampered.Subtotal.Amount = 100
	tampered.Total.Amount = q.CostBreakdown.Total.Amount - 29900

	drafts := map[string]handlers.BookingDraft{
		"breakdown": {CostBreakdown: &tampered},
		"car":       {CarID: "car-off"},
		"dates":     {PickupDate: q.PickupDate.Add(24 * time.Hour)},
	}
	for name, draft := range drafts {
		t.Run(name, func(t *testing.T) {
			_, err := f.confirm.Handle(context.Background(), handlers.ConfirmBookingCommand{AuthorizationID: q.AuthorizationID, Draft: draft})
			assert.ErrorIs(t, err, domainbooking.ErrDraftMismatch)
			assert.Equal(t, domainbooking.FailureContactSupport, domainbooking.Classify(err))
		})
	}
	_, total, _ := f.bookings.List(context.Background(), domainbooking.ListParams{})
	assert.Zero(t, total)
}

type gatewayStub struct {
	retrieve func(ctx context.Context, id string) (payment.Authorization, error)
}

func (g gatewayStub) Authorize(context.Context, payment.AuthorizeRequest) (payment.Authorization, error) {
	return payment.Authorization{}, errors.New("not used")
}

func (g gatewayStub) Retrieve(ctx context.Context, id string) (payment.Authorization, error) {
	return g.retrieve(ctx, id)
}

func TestConfirmBooking_AuthorizedAmountIsAuthoritative(t *testing.T) {
	f := newFixture(t)
	q := f.paidQuote(t, 72*time.Hour)
	authz, err := f.gateway.Retrieve(context.Background(), q.AuthorizationID)
	require.NoError(t, err)
	authz.Amount = money.Must(100, "USD")

	f.confirm.Payments = gatewayStub{retrieve: func(context.Context, string) (payment.Authorization, error) { return authz, nil }}
	_, err = f.confirm.Handle(context.Background(), handlers.ConfirmBookingCommand{AuthorizationID: authz.ID})
	assert.ErrorIs(t, err, domainbooking.ErrDraftMismatch)

	authz.Amount = money.Must(42260, "USD")
	authz.Metadata = map[string]string{}
	_, err = f.confirm.Handle(context.Background(), handlers.ConfirmBookingCommand{AuthorizationID: authz.ID})
	assert.ErrorIs(t, err, domainbooking.ErrDraftMismatch)
}

func TestConfirmBooking_NotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	f.confirm.Receipts = receiptArchiveFunc(func(context.Context, policies.Receipt) (string, error) {
		return "", errors.New("s3 down")
	})

	b := f.confirmed(t, context.Background(), 72*time.Hour, "")
	assert.Equal(t, string(domainbooking.StatusConfirmed), b.Status)
	assert.Equal(t, []policies.Channel{policies.ChannelEmail}, f.notifier.channels(), "no phone, no sms")
}

func TestConfirmBooking_EmailFallsBackToRequester(t *testing.T) {
	f := newFixture(t)
	q := f.paidQuote(t, 72*time.Hour)
	_, err := f.confirm.Handle(context.Background(), handlers.ConfirmBookingCommand{AuthorizationID: q.AuthorizationID})
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "requester@example.com", f.notifier.sent[0].To)
}

func TestCancelBooking_RefundTiers(t *testing.T) {
	cases := []struct {
		name     string
		pickupIn time.Duration
		refund   int64
	}{
		{"72h out refunds in full", 72 * time.Hour, 42260},
		{"30h out refunds half", 30 * time.Hour, 21130},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "renter-1"})
			b := f.confirmed(t, ctx, tc.pickupIn, "renter-1")

			res, err := f.cancel.Handle(ctx, handlers.CancelBookingCommand{BookingID: b.ID, Reason: "plans changed"})
			require.NoError(t, err)
			assert.Equal(t, tc.refund, res.Refund.Amount)
			assert.Equal(t, string(domainbooking.StatusCancelled), res.Status)
			assert.Equal(t, string(domainbooking.PaymentRefunded), res.PaymentStatus)

			refunds := f.gateway.Refunds(b.PaymentAuthorizationID)
			require.Len(t, refunds, 1)
			assert.Equal(t, "cancel-"+b.ID, refunds[0].IdempotencyKey)
			assert.Equal(t, tc.refund, refunds[0].Amount.Amount)

			stored, err := f.bookings.ByID(ctx, domainbooking.BookingID(b.ID))
			require.NoError(t, err)
			assert.Equal(t, domainbooking.StatusCancelled, stored.Status)
			assert.Equal(t, "plans changed", stored.CancellationReason)
		})
	}
}

type flakyRefunder struct {
	next     payment.Refunder
	failures int
}

func (r *flakyRefunder) Refund(ctx context.Context, authID string, amount money.Money, key string) error {
	if r.failures > 0 {
		r.failures--
		return payment.ErrGatewayUnavailable
	}
	return r.next.Refund(ctx, authID, amount, key)
}

func TestCancelBooking_RetryRefundsStoredAmount(t *testing.T) {
	f := newFixture(t)
	ctx := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "renter-1"})
	b := f.confirmed(t, ctx, 72*time.Hour, "renter-1")

	f.cancel.Refunds = &flakyRefunder{next: f.gateway, failures: 1}
	_, err := f.cancel.Handle(ctx, handlers.CancelBookingCommand{BookingID: b.ID})
	require.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	assert.Empty(t, f.gateway.Refunds(b.PaymentAuthorizationID))

	stored, err := f.bookings.ByID(ctx, domainbooking.BookingID(b.ID))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, stored.Status)
	assert.True(t, stored.RefundOutstanding())

	// the retry lands inside the half-refund tier but keeps the amount computed first
	f.cancel.Clock = func() time.Time { return now.Add(42 * time.Hour) }
	res, err := f.cancel.Handle(ctx, handlers.CancelBookingCommand{BookingID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(42260), res.Refund.Amount)

	refunds := f.gateway.Refunds(b.PaymentAuthorizationID)
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(42260), refunds[0].Amount.Amount)
	assert.Equal(t, "cancel-"+b.ID, refunds[0].IdempotencyKey)

	stored, err = f.bookings.ByID(ctx, domainbooking.BookingID(b.ID))
	require.NoError(t, err)
	assert.False(t, stored.RefundOutstanding())

	_, err = f.cancel.Handle(ctx, handlers.CancelBookingCommand{BookingID: b.ID})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidTransition)
	assert.Len(t, f.gateway.Refunds(b.PaymentAuthorizationID), 1)
}

func TestCancelBooking_InsideCutoff(t *testing.T) {
	f := newFixture(t)
	ctx := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "renter-1"})
	b := f.confirmed(t, ctx, 10*time.Hour, "renter-1")

	_, err := f.cancel.Handle(ctx, handlers.CancelBookingCommand{BookingID: b.ID})
	assert.ErrorIs(t, err, domainbooking.ErrCancellationWindowClosed)
	assert.Empty(t, f.gateway.Refunds(b.PaymentAuthorizationID))

	stored, err := f.bookings.ByID(ctx, domainbooking.BookingID(b.ID))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, stored.Status)
}

func TestCancelBooking_Ownership(t *testing.T) {
	f := newFixture(t)
	b := f.confirmed(t, context.Background(), 72*time.Hour, "renter-1")

	stranger := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "renter-2"})
	_, err := f.cancel.Handle(stranger, handlers.CancelBookingCommand{BookingID: b.ID})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotOwned)

	_, err = f.cancel.Handle(context.Background(), handlers.CancelBookingCommand{BookingID: b.ID})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotOwned)

	_, err = f.cancel.Handle(context.Background(), handlers.CancelBookingCommand{BookingID: b.ID, AuthorizationID: b.PaymentAuthorizationID})
	require.NoError(t, err)
}

func TestCancelBooking_AdminMayCancel(t *testing.T) {
	f := newFixture(t)
	b := f.confirmed(t, context.Background(), 72*time.Hour, "renter-1")
	admin := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "ops", Roles: []auth.Role{auth.RoleAdmin}})

	_, err := f.cancel.Handle(admin, handlers.CancelBookingCommand{BookingID: b.ID})
	require.NoError(t, err)
	_, err = f.cancel.Handle(admin, handlers.CancelBookingCommand{BookingID: b.ID})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidTransition)
}

func TestTransitionBooking(t *testing.T) {
	f := newFixture(t)
	b := f.confirmed(t, context.Background(), 72*time.Hour, "renter-1")
	h := &handlers.TransitionBookingHandler{Bookings: f.bookings, Refunds: f.gateway, Outbox: f.outbox, Clock: func() time.Time { return now }}
	ctx := context.Background()

	got, err := h.Handle(ctx, handlers.TransitionBookingCommand{BookingID: b.ID, Action: handlers.ActionActivate})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusActive), got.Status)

	_, err = h.Handle(ctx, handlers.TransitionBookingCommand{BookingID: b.ID, Action: handlers.ActionRefund})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidTransition)

	_, err = h.Handle(ctx, handlers.TransitionBookingCommand{BookingID: b.ID, Action: handlers.ActionComplete})
	require.NoError(t, err)

	got, err = h.Handle(ctx, handlers.TransitionBookingCommand{BookingID: b.ID, Action: handlers.ActionRefund})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusRefunded), got.Status)
	assert.Len(t, f.gateway.Refunds(b.PaymentAuthorizationID), 1)

	_, err = h.Handle(ctx, handlers.TransitionBookingCommand{BookingID: b.ID, Action: "archive"})
	assert.ErrorIs(t, err, handlers.ErrUnknownAction)

	names := []string{}
	for _, r := range f.outbox.Records() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"booking.confirmed", "booking.activated", "booking.completed", "booking.refunded"}, names)
}

func TestSendPickupReminders_OncePerBooking(t *testing.T) {
	f := newFixture(t)
	f.confirmed(t, context.Background(), 20*time.Hour, "")
	f.confirmed(t, context.Background(), 30*24*time.Hour, "")
	f.notifier.sent = nil

	h := &handlers.SendPickupRemindersHandler{Bookings: f.bookings, Cars: f.cars, Notifier: f.notifier, Clock: func() time.Time { return now }}
	report, err := h.Handle(context.Background(), handlers.SendPickupRemindersCommand{Window: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].Subject, "Reminder")

	report, err = h.Handle(context.Background(), handlers.SendPickupRemindersCommand{Window: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	assert.Len(t, f.notifier.sent, 1)
}

func TestBookingQueries(t *testing.T) {
	f := newFixture(t)
	renter := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "renter-1"})
	b := f.confirmed(t, renter, 72*time.Hour, "renter-1")
	f.confirmed(t, context.Background(), 30*24*time.Hour, "")
	clock := func() time.Time { return now }

	get := &handlers.GetBookingHandler{Bookings: f.bookings, Clock: clock}
	got, err := get.Handle(renter, handlers.GetBookingQuery{BookingID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	stranger := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "renter-2"})
	_, err = get.Handle(stranger, handlers.GetBookingQuery{BookingID: b.ID})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)

	mine := &handlers.ListMyBookingsHandler{Bookings: f.bookings, Clock: clock}
	list, err := mine.Handle(renter, handlers.ListMyBookingsQuery{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
	_, err = mine.Handle(context.Background(), handlers.ListMyBookingsQuery{})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	all := &handlers.ListBookingsHandler{Bookings: f.bookings, Clock: clock}
	page, err := all.Handle(context.Background(), handlers.ListBookingsQuery{Status: "confirmed", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Meta.Total)
	assert.Len(t, page.Items, 1)
}
