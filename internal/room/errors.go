package room

import (
	"errors"
	"fmt"

	"github.com/hilthontt/kickroom/internal/domain"
	"github.com/hilthontt/kickroom/internal/infrastructure/configs"
)

// ErrSessionClosed is returned when a command reaches a room that has stopped.
var ErrSessionClosed = errors.New("room session closed")

// rejectionMessage turns a rejected request into the text shown to the
// requester.
func rejectionMessage(err error, cfg configs.RoomConfig) string {
	switch {
	case errors.Is(err, domain.ErrInvalidName):
		return fmt.Sprintf("Please choose a name that is 1 to %d characters long.", cfg.MaxNameLength)
	case errors.Is(err, domain.ErrNameTaken):
		return "That name is already taken. Please choose another one."
	case errors.Is(err, domain.ErrRoomFull):
		return fmt.Sprintf("The room is full (%d/%d). Please try again later.", cfg.Capacity, cfg.Capacity)
	case errors.Is(err, domain.ErrAlreadyJoined):
		return "You have already joined the room."
	case errors.Is(err, domain.ErrVoteAlreadyRunning):
		return "A vote is already in progress."
	case errors.Is(err, domain.ErrInsufficientMembers):
		return fmt.Sprintf("At least %d members are needed to start a vote.", cfg.MinVoteMembers)
	case errors.Is(err, domain.ErrTargetNotFound):
		return "That member is not in the room."
	case errors.Is(err, domain.ErrCannotTargetSelf):
		return "You cannot start a vote against yourself."
	case errors.Is(err, domain.ErrNoActiveVote):
		return "There is no vote in progress."
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "You have already voted."
	case errors.Is(err, domain.ErrTargetCannotVote):
		return "You cannot vote on your own removal."
	}
	return "Request rejected."
}
