package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/talks/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type channelPayload struct {
	ChannelID domain.ChannelID `json:"channelId" validate:"required,gt=0"`
}

type sendMessagePayload struct {
	Content     string            `json:"content" validate:"max=10000"`
	ChannelID   *domain.ChannelID `json:"channelId"`
	RecipientID *domain.UserID    `json:"recipientId" validate:"omitempty,max=255"`
	IsDirect    *bool             `json:"isDirect"`
	TempID      json.RawMessage   `json:"tempId"`
}

type typingPayload struct {
	ChannelID   *domain.ChannelID `json:"channelId"`
	RecipientID *domain.UserID    `json:"recipientId" validate:"omitempty,max=255"`
}

type markReadPayload struct {
	MessageID domain.MessageID `json:"messageId" validate:"required,gt=0"`
}

type markAllReadPayload struct {
	SenderID domain.UserID `json:"senderId" validate:"required,max=255"`
}

// decode unmarshals data into v and runs its validation tags.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}
	return nil
}
