package domain

import "errors"

// Request rejections. None of these are fatal: the room reports them to the
// requesting connection only and carries on.
var (
	ErrInvalidName   = errors.New("invalid display name")
	ErrNameTaken     = errors.New("name already taken")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyJoined = errors.New("connection already joined")

	ErrVoteAlreadyRunning  = errors.New("a vote is already running")
	ErrInsufficientMembers = errors.New("not enough members to start a vote")
	ErrTargetNotFound      = errors.New("vote target not found")
	ErrCannotTargetSelf    = errors.New("cannot start a vote against yourself")
	ErrNoActiveVote        = errors.New("no active vote")
	ErrAlreadyVoted        = errors.New("already voted")
	ErrTargetCannotVote    = errors.New("vote target cannot vote")

	ErrInvalidMessage = errors.New("invalid message body")
)
