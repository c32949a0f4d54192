package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCreator struct {
	params []*twilioApi.CreateMessageParams
	sid    string
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := f.sid
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestCanonicalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (555) 555-1234", "+15555551234", false},
		{"555.555.1234", "+15555551234", false},
		{"+44 20 7946 0958", "+442079460958", false},
		{"", "", true},
		{"call me", "", true},
		{"12345", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CanonicalizePhone(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTwilioClientSendSMS(t *testing.T) {
	creator := &fakeCreator{sid: "SM123"}
	c := &TwilioClient{api: creator, from: "+15550001111"}

	sid, err := c.SendSMS(context.Background(), "(555) 222-3333", "hello")
	require.NoError(t, err)
	assert.Equal(t, "SM123", sid)

	require.Len(t, creator.params, 1)
	p := creator.params[0]
	assert.Equal(t, "+15552223333", *p.To)
	assert.Equal(t, "+15550001111", *p.From)
	assert.Equal(t, "hello", *p.Body)
}

func TestTwilioClientSendSMSErrors(t *testing.T) {
	creator := &fakeCreator{err: errors.New("twilio down")}
	c := &TwilioClient{api: creator, from: "+15550001111"}

	_, err := c.SendSMS(context.Background(), "+15552223333", "hello")
	assert.ErrorContains(t, err, "twilio down")

	_, err = c.SendSMS(context.Background(), "+15552223333", "")
	assert.ErrorIs(t, err, ErrEmptyBody)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.SendSMS(ctx, "+15552223333", "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, creator.params, 1, "no API call after cancellation or validation failure")
}

func TestNewTwilioClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_PHONE_NUMBER", "")

	_, err := NewTwilioClient()
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewTwilioClient(WithAccountSID("AC1"), WithAuthToken("tok"))
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := NewTwilioClient(WithAccountSID("AC1"), WithAuthToken("tok"), WithFromNumber("555-000-1111"))
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", c.from)
}

func TestUnconfiguredSender(t *testing.T) {
	_, err := UnconfiguredSender{}.SendSMS(context.Background(), "+15550001111", "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMockClientFailTimes(t *testing.T) {
	m := NewMockClient()
	m.FailTimes = 1
	_, err := m.SendSMS(context.Background(), "+1", "a")
	assert.Error(t, err)
	sid, err := m.SendSMS(context.Background(), "+1", "b")
	require.NoError(t, err)
	assert.NotEmpty(t, sid)
	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, []SentMessage{{To: "+1", Body: "b"}}, m.Sent())
}
