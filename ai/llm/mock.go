package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the provider replies with no choices.
var ErrEmptyResponse = errors.New("llm returned empty response")

// MockService is a deterministic Service for tests and offline demos.
// It replies with a fixed suggestion list in the reply format the
// suggestion parser expects, and records the messages it was given.
type MockService struct {
	// Reply overrides the canned response when non-empty.
	Reply string
	// Err is returned from Chat when non-nil.
	Err error
	// Calls holds every message batch passed to Chat.
	Calls [][]Message
}

const mockReply = `- Genre: Lofi Hip Hop
  Artists: Nujabes, J Dilla
  Note: Relaxing beats for focus
- Genre: Ambient
  Artists: Brian Eno, Stars of the Lid
  Note: Textural background for deep work`

// NewMockService creates a mock LLM service.
func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) Chat(_ context.Context, messages []Message) (string, *CallStats, error) {
	m.Calls = append(m.Calls, messages)
	if m.Err != nil {
		return "", nil, m.Err
	}
	reply := m.Reply
	if reply == "" {
		reply = mockReply
	}
	return reply, &CallStats{TotalTokens: len(reply) / 4}, nil
}
