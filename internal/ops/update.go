package ops

import (
	"context"

	"github.com/AO-5002/piecewall/internal/piece"
)

// UpdateTextInput contains parameters for the UpdateText operation.
type UpdateTextInput struct {
	Room string // required
	ID   string // required
	Text string
}

// UpdateTextOutput contains the result of the UpdateText operation.
// Updated is false when nothing changed: the piece is gone or already had the text.
type UpdateTextOutput struct {
	Room    string `json:"room"`
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
	Version int64  `json:"version"`
}

// UpdateText replaces a piece's text in place. An unknown id is a no-op.
func (s *Service) UpdateText(ctx context.Context, input UpdateTextInput) (*UpdateTextOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}
	if err := s.checkText(input.Text); err != nil {
		return nil, err
	}

	res, err := s.mutate(ctx, "update", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		i := piece.IndexOf(current, input.ID)
		if i < 0 || current[i].Text == input.Text {
			return nil, false, nil
		}
		current[i].Text = input.Text
		return current, true, nil
	})
	if err != nil {
		return nil, err
	}

	return &UpdateTextOutput{Room: room, ID: input.ID, Updated: res.Changed, Version: res.Version}, nil
}
