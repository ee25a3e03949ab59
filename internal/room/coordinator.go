package room

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hilthontt/kickroom/internal/domain"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
)

const (
	noticeKicked        = "You have been removed from the room by vote."
	noticeVoteCancelled = "The vote was cancelled because its target left the room."
)

// Coordinator runs the room's single kick vote: Idle while active is nil,
// Active otherwise. Like the Registry it is driven only from the Session
// goroutine; the deadline timer re-enters through expired.
type Coordinator struct {
	registry   *Registry
	dispatcher *Dispatcher
	messages   *domain.MessageIDs
	logger     logging.Logger
	recorder   Recorder
	audit      AuditSink
	schedule   scheduleFunc
	now        func() time.Time

	duration   time.Duration
	minMembers int

	// expired is called from the timer goroutine with the generation the
	// timer was armed for. The Session routes it back into its own loop.
	expired func(generation uint64)

	active     *domain.VoteSession
	generation uint64
	stopTimer  stopFunc
}

func newCoordinator(
	registry *Registry,
	dispatcher *Dispatcher,
	messages *domain.MessageIDs,
	logger logging.Logger,
	opts options,
	duration time.Duration,
	minMembers int,
	expired func(generation uint64),
) *Coordinator {
	return &Coordinator{
		registry:   registry,
		dispatcher: dispatcher,
		messages:   messages,
		logger:     logger,
		recorder:   opts.recorder,
		audit:      opts.audit,
		schedule:   opts.schedule,
		now:        opts.now,
		duration:   duration,
		minMembers: minMembers,
		expired:    expired,
	}
}

// Active returns the running vote, or nil when idle.
func (c *Coordinator) Active() *domain.VoteSession {
	return c.active
}

// Start opens a vote by initiator against the member named targetName.
func (c *Coordinator) Start(initiator *domain.Member, targetName string) error {
	if c.active != nil {
		return domain.ErrVoteAlreadyRunning
	}
	if c.registry.Size() < c.minMembers {
		return domain.ErrInsufficientMembers
	}

	target := c.registry.FindByName(targetName)
	if target == nil {
		return domain.ErrTargetNotFound
	}
	if target.ID == initiator.ID {
		return domain.ErrCannotTargetSelf
	}

	c.generation++
	generation := c.generation
	c.active = domain.NewVoteSession(generation, initiator, target, c.now(), c.duration)

	c.dispatcher.BroadcastAll(NewVoteStarted(target.Name, initiator.Name, c.duration))
	c.stopTimer = c.schedule(c.duration, func() { c.expired(generation) })

	c.recorder.VoteStarted()
	c.audit.Publish(domain.AuditEvent{
		Kind:       domain.AuditVoteStarted,
		MemberID:   target.ID,
		MemberName: target.Name,
		Attributes: map[string]string{"initiator": initiator.Name},
		OccurredAt: c.active.StartedAt,
	})
	c.logger.Info(logging.Room, logging.Vote, "vote started", map[logging.ExtraKey]any{
		logging.MemberName: target.Name,
		"initiator":        initiator.Name,
		logging.Generation: generation,
	})

	return nil
}

// Ballot records voter's ballot and resolves the vote as soon as the outcome
// is decided.
func (c *Coordinator) Ballot(voter *domain.Member, approve bool) error {
	vote := c.active
	if vote == nil {
		return domain.ErrNoActiveVote
	}
	if vote.HasVoted(voter.ID) {
		return domain.ErrAlreadyVoted
	}
	if voter.ID == vote.TargetID {
		return domain.ErrTargetCannotVote
	}

	vote.Cast(voter.ID, approve)

	totalVoters := c.totalVoters()
	c.dispatcher.BroadcastAll(NewVoteUpdate(vote, totalVoters))

	if vote.Decided(totalVoters) {
		c.resolve()
	}
	return nil
}

// Expire resolves the vote armed with generation. A timer that outlived its
// vote finds a different generation (or none) and does nothing.
func (c *Coordinator) Expire(generation uint64) {
	if c.active == nil || c.active.Generation != generation {
		c.logger.Debug(logging.Room, logging.Vote, "ignoring stale vote timer", map[logging.ExtraKey]any{
			logging.Generation: generation,
		})
		return
	}
	c.resolve()
}

// MemberLeft must be called after member has left the Registry. When member
// is the target, the vote is cancelled without counting ballots. Any other
// departure keeps that member's ballot and only shrinks the electorate, which
// is read again at the next ballot or at resolution.
func (c *Coordinator) MemberLeft(member *domain.Member) bool {
	vote := c.active
	if vote == nil || vote.TargetID != member.ID {
		return false
	}

	c.finish()
	c.dispatcher.BroadcastAll(NewNotice(EventVoteCancelled, noticeVoteCancelled))

	c.recorder.VoteEnded(OutcomeCancelled)
	c.audit.Publish(domain.AuditEvent{
		Kind:       domain.AuditVoteCancelled,
		MemberID:   vote.TargetID,
		MemberName: vote.TargetName,
		OccurredAt: c.now(),
	})
	c.logger.Info(logging.Room, logging.Vote, "vote cancelled, target left", map[logging.ExtraKey]any{
		logging.MemberName: vote.TargetName,
		logging.Generation: vote.Generation,
	})
	return true
}

// Stop disarms the deadline timer and drops the running vote, if any.
func (c *Coordinator) Stop() {
	c.finish()
}

func (c *Coordinator) resolve() {
	vote := c.active
	totalVoters := c.totalVoters()
	kicked := vote.Passes(totalVoters)

	c.finish()

	now := c.now()
	if kicked {
		c.kick(vote, now)
		c.announce(fmt.Sprintf("%s was removed from the room by vote.", vote.TargetName), now)
	} else {
		c.announce(fmt.Sprintf("The vote to remove %s did not pass.", vote.TargetName), now)
	}

	c.dispatcher.BroadcastAll(NewVoteEnded(vote, kicked, totalVoters))
	if kicked {
		c.dispatcher.BroadcastAll(NewUsersUpdate(c.registry.Snapshot()))
	}

	outcome := OutcomeRejected
	if kicked {
		outcome = OutcomeKicked
	}
	c.recorder.VoteEnded(outcome)
	c.audit.Publish(domain.AuditEvent{
		Kind:       domain.AuditVoteResolved,
		MemberID:   vote.TargetID,
		MemberName: vote.TargetName,
		Attributes: map[string]string{
			"outcome":     outcome,
			"approvals":   strconv.Itoa(vote.Approvals),
			"ballots":     strconv.Itoa(vote.BallotCount()),
			"totalVoters": strconv.Itoa(totalVoters),
		},
		OccurredAt: now,
	})
	c.logger.Info(logging.Room, logging.Vote, "vote resolved", map[logging.ExtraKey]any{
		logging.MemberName: vote.TargetName,
		logging.Generation: vote.Generation,
		"outcome":          outcome,
		"approvals":        vote.Approvals,
		"total_voters":     totalVoters,
	})
}

func (c *Coordinator) kick(vote *domain.VoteSession, now time.Time) {
	conn := c.registry.ConnOf(vote.TargetID)
	if conn == nil {
		return
	}

	c.registry.Remove(conn)
	c.recorder.MembersChanged(c.registry.Size())

	c.dispatcher.SendTo(conn, NewNotice(EventKicked, noticeKicked))
	if err := conn.Close(); err != nil {
		c.logger.Warn(logging.Room, logging.Vote, "failed to close kicked connection", map[logging.ExtraKey]any{
			logging.MemberID:     vote.TargetID,
			logging.ErrorMessage: err.Error(),
		})
	}

	c.audit.Publish(domain.AuditEvent{
		Kind:       domain.AuditMemberKicked,
		MemberID:   vote.TargetID,
		MemberName: vote.TargetName,
		OccurredAt: now,
	})
}

func (c *Coordinator) announce(text string, now time.Time) {
	msg := domain.NewSystemMessage(c.messages.Next(now), text, now)
	c.dispatcher.BroadcastAll(NewChatEvent(EventReceiveMessage, msg))
	c.recorder.MessageSent(domain.MessageKindSystem)
}

// finish returns to Idle and disarms the timer.
func (c *Coordinator) finish() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
	c.active = nil
}

// totalVoters is every current member except the target.
func (c *Coordinator) totalVoters() int {
	n := c.registry.Size() - 1
	if n < 0 {
		return 0
	}
	return n
}
