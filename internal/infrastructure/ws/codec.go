package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Inbound frame types.
const (
	FrameJoin        = "join"
	FrameSendMessage = "send_message"
	FrameStartVote   = "start_vote"
	FrameVote        = "vote"
)

var ErrMalformedFrame = errors.New("malformed frame")

var frameValidator = validator.New(validator.WithRequiredStructEnabled())

// Frame is one inbound client message. Only the field that belongs to Type
// is required; pointers tell a missing field from a zero value.
type Frame struct {
	Type           string  `json:"type" validate:"required,oneof=join send_message start_vote vote"`
	Username       *string `json:"username" validate:"required_if=Type join"`
	Message        *string `json:"message" validate:"required_if=Type send_message"`
	TargetUsername *string `json:"targetUsername" validate:"required_if=Type start_vote"`
	Approve        *bool   `json:"approve" validate:"required_if=Type vote"`
}

func DecodeFrame(raw []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := frameValidator.Struct(&frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &frame, nil
}
