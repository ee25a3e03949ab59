package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	MemberID string `json:"memberId,omitempty"`
	Data     []byte `json:"data"`
}

// Routing keys, one per audit event kind.
const (
	EventMemberJoined  = "member.joined"
	EventMemberLeft    = "member.left"
	EventMemberKicked  = "member.kicked"
	EventVoteStarted   = "vote.started"
	EventVoteResolved  = "vote.resolved"
	EventVoteCancelled = "vote.cancelled"
)
