package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrRelayUnavailable = errors.New("chat service is not configured")
	ErrEmptyInput       = errors.New("message must not be empty")
)

// RelayFailureError wraps a failed call to the chat service.
type RelayFailureError struct {
	Detail string
}

func (e *RelayFailureError) Error() string {
	return fmt.Sprintf("chat service failed: %s", e.Detail)
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient sends a full conversation and returns the assistant's reply.
type ChatClient interface {
	Complete(ctx context.Context, history []Message) (string, error)
}

// Relay forwards user text to the chat service inside one long-lived
// session. The session is shared by every caller of the process; mu covers
// the whole read-send-append sequence so turns never interleave.
type Relay struct {
	client ChatClient

	mu      sync.Mutex
	history []Message
}

// NewRelay returns a relay backed by client. A nil client yields a relay
// whose Send always fails with ErrRelayUnavailable.
func NewRelay(client ChatClient) *Relay {
	return &Relay{client: client}
}

func (r *Relay) Available() bool {
	return r != nil && r.client != nil
}

func (r *Relay) Send(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	if !r.Available() {
		return "", ErrRelayUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	turn := make([]Message, len(r.history), len(r.history)+1)
	copy(turn, r.history)
	turn = append(turn, Message{Role: RoleUser, Content: text})

	reply, err := r.client.Complete(ctx, turn)
	if err != nil {
		return "", &RelayFailureError{Detail: err.Error()}
	}

	r.history = append(turn, Message{Role: RoleAssistant, Content: reply})
	return reply, nil
}

// History returns a copy of the session's turns, oldest first.
func (r *Relay) History() []Message {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.history...)
}
