package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"rentcars/internal/app/policies"
)

// smsAPI is the slice of the Twilio REST client used here.
type smsAPI interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

type TwilioSMS struct {
	api  smsAPI
	from string
}

func NewTwilioSMS(accountSID, authToken, from string) *TwilioSMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMS{api: client.Api, from: from}
}

// Send posts an SMS. The Twilio client has no context support, so ctx is only
// checked before the call.
func (s *TwilioSMS) Send(ctx context.Context, msg policies.Message) error {
	if msg.Channel != policies.ChannelSMS {
		return ErrWrongChannel
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(s.from)
	params.SetBody(msg.Body)
	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	return nil
}

var _ policies.Notifier = (*TwilioSMS)(nil)
