package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/hilthontt/kickroom/internal/infrastructure/validate"
)

type MessageKind string

const (
	MessageKindUser   MessageKind = "user"
	MessageKindSystem MessageKind = "system"
)

// ChatMessage is delivered once and never stored. Author is the sender's name
// at send time, so it survives the sender leaving.
type ChatMessage struct {
	ID     int64       `json:"id"`
	Author string      `json:"username,omitempty"`
	Body   string      `json:"message"`
	Kind   MessageKind `json:"type"`
	SentAt time.Time   `json:"timestamp"`
}

// MessageIDs hands out time-derived message ids (unix milliseconds) that
// strictly increase even when several messages land in the same millisecond.
type MessageIDs struct {
	mu   sync.Mutex
	last int64
}

func (g *MessageIDs) Next(now time.Time) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := now.UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

func NewUserMessage(id int64, author *Member, body string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:     id,
		Author: author.Name,
		Body:   body,
		Kind:   MessageKindUser,
		SentAt: now,
	}
}

func NewSystemMessage(id int64, body string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:     id,
		Body:   body,
		Kind:   MessageKindSystem,
		SentAt: now,
	}
}

func ValidateBody(body string, maxLength int) error {
	validateBody := validate.Compose(
		validate.Required(),
		validate.ValidUTF8(),
		validate.MaxLength(maxLength),
	)

	if err := validateBody(body); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}
