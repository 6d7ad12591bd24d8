package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"rentcars/internal/app/policies"
)

func TestSendGridMailer(t *testing.T) {
	var (
		path, auth string
		body       map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("SG.key", "bookings@rentcars.test", "RentCars", srv.URL)
	err := m.Send(context.Background(), policies.Message{
		Channel:  policies.ChannelEmail,
		To:       "ann@example.com",
		Subject:  "Booking b-1 confirmed",
		Body:     "Your booking is confirmed.",
		Template: "booking_confirmed",
		Data:     map[string]string{"booking_id": "b-1", "driver_name": "Ann"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/v3/mail/send", path)
	assert.Equal(t, "Bearer SG.key", auth)
	assert.Equal(t, "Booking b-1 confirmed", body["subject"])
	assert.Equal(t, map[string]any{"X-Booking-ID": "b-1"}, body["headers"])
}

func TestSendGridMailer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	m := NewSendGridMailer("SG.bad", "bookings@rentcars.test", "RentCars", srv.URL)
	err := m.Send(context.Background(), policies.Message{Channel: policies.ChannelEmail, To: "a@b.c", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	assert.ErrorIs(t, m.Send(context.Background(), policies.Message{Channel: policies.ChannelSMS}), ErrWrongChannel)
}

type fakeSMS struct {
	params *twilioapi.CreateMessageParams
	err    error
}

func (f *fakeSMS) CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error) {
	f.params = params
	return &twilioapi.ApiV2010Message{}, f.err
}

func TestTwilioSMS(t *testing.T) {
	api := &fakeSMS{}
	s := &TwilioSMS{api: api, from: "+15550000"}

	require.NoError(t, s.Send(context.Background(), policies.Message{Channel: policies.ChannelSMS, To: "+15550100", Body: "Booking confirmed"}))
	require.NotNil(t, api.params)
	assert.Equal(t, "+15550100", *api.params.To)
	assert.Equal(t, "+15550000", *api.params.From)
	assert.Equal(t, "Booking confirmed", *api.params.Body)

	api.err = errors.New("invalid number")
	assert.Error(t, s.Send(context.Background(), policies.Message{Channel: policies.ChannelSMS, To: "x"}))
	assert.ErrorIs(t, s.Send(context.Background(), policies.Message{Channel: policies.ChannelEmail}), ErrWrongChannel)
}

type recorder struct {
	mu    sync.Mutex
	msgs  []policies.Message
	fails int
}

func (r *recorder) Send(_ context.Context, msg policies.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return errors.New("provider down")
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestRouter(t *testing.T) {
	email, sms := &recorder{}, &recorder{}
	r := Router{policies.ChannelEmail: email, policies.ChannelSMS: sms}

	require.NoError(t, r.Send(context.Background(), policies.Message{Channel: policies.ChannelSMS}))
	assert.Equal(t, 0, email.count())
	assert.Equal(t, 1, sms.count())

	assert.Error(t, Router{}.Send(context.Background(), policies.Message{Channel: policies.ChannelEmail}))
}

func TestAsync_DeliversAndRetries(t *testing.T) {
	next := &recorder{fails: 1}
	a := NewAsync(next, 1, 4, 2, nil)
	a.backoff = func(int) time.Duration { return time.Millisecond }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.NoError(t, a.Send(context.Background(), policies.Message{Channel: policies.ChannelEmail, To: "a@b.c"}))
	require.Eventually(t, func() bool { return next.count() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestAsync_QueueFull(t *testing.T) {
	a := NewAsync(&recorder{}, 1, 1, 0, nil)
	require.NoError(t, a.Send(context.Background(), policies.Message{}))
	assert.ErrorIs(t, a.Send(context.Background(), policies.Message{}), ErrQueueFull)
}

func TestAsync_DrainsOnShutdown(t *testing.T) {
	next := &recorder{}
	a := NewAsync(next, 1, 8, 0, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Send(context.Background(), policies.Message{}))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.Run(ctx))
	assert.Equal(t, 3, next.count())
}
