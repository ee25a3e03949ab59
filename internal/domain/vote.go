package domain

import "time"

// VoteSession is the single in-flight kick vote. Generation identifies the
// session so a timer armed for an older vote can be told apart from this one.
type VoteSession struct {
	Generation    uint64
	TargetID      string
	TargetName    string
	InitiatorID   string
	InitiatorName string
	Ballots       map[string]bool // voter id -> approve
	Approvals     int
	StartedAt     time.Time
	Deadline      time.Time
}

func NewVoteSession(generation uint64, initiator, target *Member, now time.Time, duration time.Duration) *VoteSession {
	return &VoteSession{
		Generation:    generation,
		TargetID:      target.ID,
		TargetName:    target.Name,
		InitiatorID:   initiator.ID,
		InitiatorName: initiator.Name,
		Ballots:       make(map[string]bool),
		StartedAt:     now,
		Deadline:      now.Add(duration),
	}
}

func (v *VoteSession) HasVoted(voterID string) bool {
	_, ok := v.Ballots[voterID]
	return ok
}

// Cast records a ballot. Callers must reject the target and repeat voters first.
func (v *VoteSession) Cast(voterID string, approve bool) {
	v.Ballots[voterID] = approve
	if approve {
		v.Approvals++
	}
}

func (v *VoteSession) BallotCount() int {
	return len(v.Ballots)
}

// Passes reports whether approvals are a strict majority of totalVoters.
// Ties never pass. Ballots of members who have since left still count, so an
// empty electorate is checked explicitly.
func (v *VoteSession) Passes(totalVoters int) bool {
	if totalVoters <= 0 {
		return false
	}
	return v.Approvals*2 > totalVoters
}

// Decided reports whether the vote can resolve before its deadline: every
// eligible voter has voted, or the approvals already form a majority.
func (v *VoteSession) Decided(totalVoters int) bool {
	return v.BallotCount() >= totalVoters || v.Passes(totalVoters)
}
