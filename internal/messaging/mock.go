package messaging

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage is one message captured by MockClient.
type SentMessage struct {
	To   string
	Body string
}

// MockClient records messages instead of sending them. Set Err to make every
// send fail, or FailTimes to fail only the first N sends.
type MockClient struct {
	mu           sync.Mutex
	SentMessages []SentMessage
	Err          error
	FailTimes    int
	calls        int
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// SendSMS records the message and returns a deterministic SID.
func (m *MockClient) SendSMS(ctx context.Context, to string, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if m.calls <= m.FailTimes {
		return "", fmt.Errorf("mock send failure %d", m.calls)
	}
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: body})
	return fmt.Sprintf("SM%032d", len(m.SentMessages)), nil
}

// Sent returns a copy of the captured messages.
func (m *MockClient) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.SentMessages...)
}

// Calls returns how many times SendSMS was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
