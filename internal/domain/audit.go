package domain

import "time"

type AuditKind string

const (
	AuditMemberJoined  AuditKind = "member.joined"
	AuditMemberLeft    AuditKind = "member.left"
	AuditMemberKicked  AuditKind = "member.kicked"
	AuditVoteStarted   AuditKind = "vote.started"
	AuditVoteResolved  AuditKind = "vote.resolved"
	AuditVoteCancelled AuditKind = "vote.cancelled"
)

// AuditEvent is a moderation-relevant fact about the room, emitted after the
// state change it describes has already happened.
type AuditEvent struct {
	Kind       AuditKind         `json:"kind"`
	MemberID   string            `json:"memberId,omitempty"`
	MemberName string            `json:"memberName,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}
