package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/dto"
	availabilityapp "rentcars/internal/app/handlers/availability"
	bookingapp "rentcars/internal/app/handlers/booking"
	catalogapp "rentcars/internal/app/handlers/catalog"
	paymentsapp "rentcars/internal/app/handlers/payments"
	"rentcars/internal/app/middleware"
	appoutbox "rentcars/internal/app/outbox"
	"rentcars/internal/app/policies"
	"rentcars/internal/app/queries"
	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	"rentcars/internal/domain/payment"
	domainpricing "rentcars/internal/domain/pricing"
	"rentcars/internal/domain/shared/money"
	"rentcars/internal/infra/broker/kafka"
	"rentcars/internal/infra/config"
	mongodb "rentcars/internal/infra/db/mongo"
	ginserver "rentcars/internal/infra/http/gin"
	"rentcars/internal/infra/inbox"
	"rentcars/internal/infra/notify"
	"rentcars/internal/infra/obs"
	infraoutbox "rentcars/internal/infra/outbox"
	paymentstripe "rentcars/internal/infra/payments/stripe"
	"rentcars/internal/infra/receipts"
	"rentcars/internal/infra/schedule"
	"rentcars/internal/infra/security"
	"rentcars/internal/infra/storage/memory"
	"rentcars/internal/infra/storage/s3"
	"rentcars/internal/infra/validation"
)

type backgroundTask struct {
	name string
	run  func(ctx context.Context) error
}

type application struct {
	handlers   ginserver.Handlers
	health     obs.HealthHandlers
	background []backgroundTask
	closers    []func(ctx context.Context) error
}

type stores struct {
	cars        domaincatalog.Repository
	bookings    domainbooking.Repository
	idempotency middleware.IdempotencyStore
	outbox      appoutbox.Outbox
	queue       infraoutbox.Queue
	inbox       policies.Inbox
}

type gateway interface {
	payment.Gateway
	payment.Refunder
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{health: obs.HealthHandlers{Checks: map[string]obs.Check{}}}

	st, err := app.buildStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.SeedDemoCars {
		if err := memory.SeedDemoCars(ctx, st.cars, time.Now()); err != nil {
			logger.Warn("demo cars not seeded", "error", err)
		}
	}

	var payments gateway
	var sandbox *memory.SandboxGateway
	if cfg.SandboxPayments {
		sandbox = memory.NewSandboxGateway()
		payments = sandbox
		logger.Warn("sandbox payment gateway in use: no money moves")
	} else {
		payments = paymentstripe.New(cfg.StripeSecretKey, logger)
	}

	notifier := app.buildNotifier(cfg, logger)
	receiptArchive := app.buildReceipts(cfg, logger)

	pricingPolicy := domainpricing.Policy{
		TaxBps:          cfg.TaxBps,
		DepositBps:      cfg.DepositBps,
		DepositCap:      money.Must(cfg.DepositCapCents, cfg.Currency),
		InsurancePerDay: money.Must(cfg.InsurancePerDayCents, cfg.Currency),
	}
	refundPolicy := domainbooking.RefundPolicy{
		CancellationCutoff: cfg.CancellationCutoff,
		FullRefundBefore:   cfg.FullRefundBefore,
		PartialRefundBps:   cfg.PartialRefundBps,
	}
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.RequestQuoteCommand, *dto.Quote](commandBus, bookingapp.RequestQuoteKey, &bookingapp.RequestQuoteHandler{
		Cars:         st.cars,
		Bookings:     st.bookings,
		Pricing:      policies.PolicyPricing{Policy: pricingPolicy},
		Payments:     payments,
		CheckOverlap: cfg.OverlapCheck,
		Logger:       logger,
	})
	commands.RegisterHandler[bookingapp.ConfirmBookingCommand, *dto.Booking](commandBus, bookingapp.ConfirmBookingKey, &bookingapp.ConfirmBookingHandler{
		Payments:     payments,
		Bookings:     st.bookings,
		Cars:         st.cars,
		Outbox:       st.outbox,
		Encoder:      encoder,
		Notifier:     notifier,
		Receipts:     receiptArchive,
		RefundPolicy: refundPolicy,
		Logger:       logger,
	})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *dto.Cancellation](commandBus, bookingapp.CancelBookingKey, &bookingapp.CancelBookingHandler{
		Bookings: st.bookings,
		Refunds:  payments,
		Outbox:   st.outbox,
		Encoder:  encoder,
		Notifier: notifier,
		Logger:   logger,
	})
	commands.RegisterHandler[bookingapp.TransitionBookingCommand, *dto.Booking](commandBus, bookingapp.TransitionBookingKey, &bookingapp.TransitionBookingHandler{
		Bookings: st.bookings,
		Refunds:  payments,
		Outbox:   st.outbox,
		Encoder:  encoder,
		Logger:   logger,
	})
	commands.RegisterHandler[bookingapp.SendPickupRemindersCommand, bookingapp.ReminderReport](commandBus, bookingapp.SendPickupRemindersKey, &bookingapp.SendPickupRemindersHandler{
		Bookings: st.bookings,
		Cars:     st.cars,
		Notifier: notifier,
		Logger:   logger,
	})
	commands.RegisterHandler[paymentsapp.SyncPaymentEventCommand, paymentsapp.SyncResult](commandBus, paymentsapp.SyncPaymentEventKey, &paymentsapp.SyncPaymentEventHandler{
		Inbox:    st.inbox,
		Bookings: st.bookings,
		Outbox:   st.outbox,
		Encoder:  encoder,
		Logger:   logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[catalogapp.ListCarsQuery, dto.CarCatalog](queryBus, catalogapp.ListCarsKey, &catalogapp.ListCarsHandler{Cars: st.cars})
	queries.RegisterHandler[catalogapp.GetCarQuery, dto.Car](queryBus, catalogapp.GetCarKey, &catalogapp.GetCarHandler{Cars: st.cars})
	queries.RegisterHandler[availabilityapp.GetCalendarQuery, dto.Calendar](queryBus, availabilityapp.GetCalendarKey, &availabilityapp.GetCalendarHandler{Cars: st.cars, Bookings: st.bookings})
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.Booking](queryBus, bookingapp.GetBookingKey, &bookingapp.GetBookingHandler{Bookings: st.bookings})
	queries.RegisterHandler[bookingapp.ListMyBookingsQuery, dto.BookingCollection](queryBus, bookingapp.ListMyBookingsKey, &bookingapp.ListMyBookingsHandler{Bookings: st.bookings})
	queries.RegisterHandler[bookingapp.ListBookingsQuery, dto.BookingCollection](queryBus, bookingapp.ListBookingsKey, &bookingapp.ListBookingsHandler{Bookings: st.bookings})

	validator := validation.New()
	commandsWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.Validation(validator),
		middleware.Idempotency(st.idempotency, nil),
		middleware.OutboxFlush(st.outbox),
	)
	queriesWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
		middleware.QueryValidation(validator),
	)

	var authMiddleware ginserver.AuthMiddleware
	if cfg.JWTSecret != "" {
		tokens, err := security.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
		if err != nil {
			return nil, err
		}
		authMiddleware = ginserver.AuthMiddleware{Tokens: tokens, Logger: logger}
	} else {
		logger.Warn("JWT_SECRET not set: every caller is anonymous")
		authMiddleware = ginserver.AuthMiddleware{Logger: logger}
	}

	paymentHTTP := ginserver.PaymentHandler{Commands: commandsWithMiddleware, Logger: logger}
	if cfg.StripeWebhookSecret != "" {
		paymentHTTP.Webhooks = paymentstripe.WebhookVerifier{Secret: cfg.StripeWebhookSecret}
	}
	if sandbox != nil {
		paymentHTTP.Sandbox = sandbox
	}

	app.handlers = ginserver.Handlers{
		Cars:           ginserver.CarHandler{Queries: queriesWithMiddleware, Logger: logger},
		Booking:        ginserver.BookingHandler{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware, Logger: logger},
		Admin:          ginserver.AdminHandler{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware, ReminderWindow: cfg.ReminderWindow, Logger: logger},
		Payments:       paymentHTTP,
		AuthMiddleware: authMiddleware.Handle,
	}

	if err := app.buildRelay(cfg, st, logger); err != nil {
		return nil, err
	}

	scheduler := schedule.New(logger, 0)
	if err := scheduler.Register("pickup-reminders", cfg.ReminderSchedule, schedule.ReminderJob(commandsWithMiddleware, cfg.ReminderWindow, logger)); err != nil {
		return nil, err
	}
	app.background = append(app.background, backgroundTask{name: "scheduler", run: scheduler.Run})
	return app, nil
}

func (a *application) buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	if !cfg.UsesMongo() {
		logger.Warn("MONGO_URI not set: bookings live in memory and vanish on restart")
		box := memory.NewOutbox()
		return stores{
			cars:        memory.NewCarRepository(),
			bookings:    memory.NewBookingRepository(),
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			outbox:      box,
			queue:       box,
			inbox:       memory.NewInbox(),
		}, nil
	}
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return stores{}, fmt.Errorf("connect mongo: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.health.Checks["mongo"] = client.Ping

	cars, err := mongodb.NewCarRepository(ctx, client.DB)
	if err != nil {
		return stores{}, err
	}
	bookings, err := mongodb.NewBookingRepository(ctx, client.DB)
	if err != nil {
		return stores{}, err
	}
	idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return stores{}, err
	}
	box, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		return stores{}, err
	}
	in, err := inbox.NewStore(ctx, client.DB, "payments-webhook", 0)
	if err != nil {
		return stores{}, err
	}
	return stores{cars: cars, bookings: bookings, idempotency: idem, outbox: box, queue: box, inbox: in}, nil
}

func (a *application) buildNotifier(cfg config.Config, logger *slog.Logger) policies.Notifier {
	router := notify.Router{
		policies.ChannelEmail: notify.LogNotifier{Logger: logger},
		policies.ChannelSMS:   notify.LogNotifier{Logger: logger},
	}
	if cfg.SendGridAPIKey != "" {
		router[policies.ChannelEmail] = notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName, "")
	}
	if cfg.UsesTwilio() {
		router[policies.ChannelSMS] = notify.NewTwilioSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}
	async := notify.NewAsync(router, 2, cfg.NotificationQueueSize, 3, logger)
	a.background = append(a.background, backgroundTask{name: "notifications", run: async.Run})
	return async
}

func (a *application) buildReceipts(cfg config.Config, logger *slog.Logger) policies.ReceiptArchive {
	if !cfg.ReceiptsEnabled {
		return nil
	}
	if !cfg.UsesS3() {
		logger.Info("S3 not configured: receipts are not archived")
		return nil
	}
	store, err := s3.NewClient(s3.Options{
		Endpoint:  cfg.S3Endpoint,
		UseSSL:    cfg.S3UseSSL,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
	}, logger)
	if err != nil {
		logger.Warn("receipt store unavailable", "error", err)
		return nil
	}
	return receipts.NewArchive(receipts.Renderer{Company: cfg.MailFromName, Support: cfg.SupportEmail}, store, "receipts")
}

func (a *application) buildRelay(cfg config.Config, st stores, logger *slog.Logger) error {
	if !cfg.UsesKafka() {
		logger.Info("KAFKA_BROKERS not set: domain events stay in the outbox")
		return nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("rentcars"))
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return producer.Close() })
	worker := &infraoutbox.Worker{
		Queue:       st.queue,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "rentcars",
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	a.background = append(a.background, backgroundTask{name: "outbox-relay", run: worker.Run})
	return nil
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}
