package room

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hilthontt/kickroom/internal/domain"
)

// Outbound event types.
const (
	EventJoinSuccess    = "join_success"
	EventJoinError      = "join_error"
	EventUsersUpdate    = "users_update"
	EventReceiveMessage = "receive_message"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventVoteStarted    = "vote_started"
	EventVoteUpdate     = "vote_update"
	EventVoteEnded      = "vote_ended"
	EventVoteCancelled  = "vote_cancelled"
	EventVoteError      = "vote_error"
	EventKicked         = "kicked"
)

// Event is one outbound message. On the wire the payload fields sit next to
// "type" in a single flat object.
type Event struct {
	Type string
	Data any
}

func (e *Event) MarshalJSON() ([]byte, error) {
	typ, err := json.Marshal(e.Type)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if e.Data != nil {
		body, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", e.Type, err)
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%s payload is not an object: %w", e.Type, err)
		}
	}
	fields["type"] = typ

	return json.Marshal(fields)
}

// Payload structs
type UsernamePayload struct {
	Username string `json:"username"`
}

type NoticePayload struct {
	Message string `json:"message"`
}

type UsersPayload struct {
	Users []domain.Member `json:"users"`
}

type ChatPayload struct {
	Message domain.ChatMessage `json:"message"`
}

type VoteStartedPayload struct {
	Target    string `json:"target"`
	Initiator string `json:"initiator"`
	Duration  int64  `json:"duration"` // milliseconds
}

type VoteUpdatePayload struct {
	CurrentVotes int    `json:"currentVotes"`
	TotalVoters  int    `json:"totalVoters"`
	Approvals    int    `json:"approvals"`
	Target       string `json:"target"`
}

type VoteEndedPayload struct {
	Target      string `json:"target"`
	IsKicked    bool   `json:"isKicked"`
	Approvals   int    `json:"approvals"`
	TotalVoters int    `json:"totalVoters"`
}

func NewJoinSuccess(username string) *Event {
	return &Event{Type: EventJoinSuccess, Data: UsernamePayload{Username: username}}
}

func NewNotice(eventType, message string) *Event {
	return &Event{Type: eventType, Data: NoticePayload{Message: message}}
}

func NewUsersUpdate(members []domain.Member) *Event {
	return &Event{Type: EventUsersUpdate, Data: UsersPayload{Users: members}}
}

func NewChatEvent(eventType string, msg domain.ChatMessage) *Event {
	return &Event{Type: eventType, Data: ChatPayload{Message: msg}}
}

func NewVoteStarted(target, initiator string, duration time.Duration) *Event {
	return &Event{
		Type: EventVoteStarted,
		Data: VoteStartedPayload{
			Target:    target,
			Initiator: initiator,
			Duration:  duration.Milliseconds(),
		},
	}
}

func NewVoteUpdate(vote *domain.VoteSession, totalVoters int) *Event {
	return &Event{
		Type: EventVoteUpdate,
		Data: VoteUpdatePayload{
			CurrentVotes: vote.BallotCount(),
			TotalVoters:  totalVoters,
			Approvals:    vote.Approvals,
			Target:       vote.TargetName,
		},
	}
}

func NewVoteEnded(vote *domain.VoteSession, kicked bool, totalVoters int) *Event {
	return &Event{
		Type: EventVoteEnded,
		Data: VoteEndedPayload{
			Target:      vote.TargetName,
			IsKicked:    kicked,
			Approvals:   vote.Approvals,
			TotalVoters: totalVoters,
		},
	}
}
