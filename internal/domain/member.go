package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/kickroom/internal/infrastructure/validate"
)

// Member is a joined participant occupying one room slot. The ID is stable
// for the member's lifetime and independent of the transport connection.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

func NewMember(rawName string, maxNameLength int) (*Member, error) {
	validateName := validate.Compose(
		validate.Required(),
		validate.ValidUTF8(),
		validate.MaxLength(maxNameLength),
		validate.NoControlChars(),
	)

	if err := validateName(rawName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	return &Member{
		ID:       uuid.NewString(),
		Name:     rawName,
		JoinedAt: time.Now(),
	}, nil
}
