package storage

import (
	"time"

	"github.com/dkeye/talks/internal/domain"
)

type userRow struct {
	ID          string `gorm:"primaryKey;size:255"`
	Username    string `gorm:"size:255;not null;index"`
	DisplayName string `gorm:"size:255"`
	AvatarURL   string `gorm:"type:text"`
	IsOnline    bool   `gorm:"not null;default:false;index"`
	LastSeen    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (userRow) TableName() string { return "users" }

type channelRow struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"size:255;not null;uniqueIndex"`
	Description string  `gorm:"type:text"`
	IsPrivate   bool    `gorm:"not null;default:false;index"`
	CreatedBy   *string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (channelRow) TableName() string { return "channels" }

func (r channelRow) toDomain() *domain.Channel {
	ch := &domain.Channel{
		ID:          domain.ChannelID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		IsPrivate:   r.IsPrivate,
		CreatedAt:   r.CreatedAt,
	}
	if r.CreatedBy != nil {
		uid := domain.UserID(*r.CreatedBy)
		ch.CreatedBy = &uid
	}
	return ch
}

type channelMemberRow struct {
	ChannelID int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID    string `gorm:"primaryKey;size:255;index:idx_user"`
	JoinedAt  time.Time
}

func (channelMemberRow) TableName() string { return "channel_members" }

type messageRow struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Content     string  `gorm:"type:text;not null"`
	SenderID    string  `gorm:"size:255;not null;index"`
	ChannelID   *int64  `gorm:"index"`
	RecipientID *string `gorm:"size:255;index"`
	IsDirect    bool    `gorm:"not null;default:false"`
	IsRead      bool    `gorm:"not null;default:false"`
	ReadAt      *time.Time
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

func (messageRow) TableName() string { return "messages" }

func messageRowFrom(m *domain.Message) *messageRow {
	row := &messageRow{
		Content:  m.Content,
		SenderID: string(m.SenderID),
		IsDirect: m.IsDirect,
		IsRead:   m.IsRead,
		ReadAt:   m.ReadAt,
	}
	if m.ChannelID != nil {
		id := int64(*m.ChannelID)
		row.ChannelID = &id
	}
	if m.RecipientID != nil {
		id := string(*m.RecipientID)
		row.RecipientID = &id
	}
	return row
}

// messageViewRow is messages joined with the sender's display fields.
type messageViewRow struct {
	Msg               messageRow `gorm:"embedded"`
	SenderUsername    string
	SenderAvatar      string
	SenderDisplayName string
}

func (v messageViewRow) toDomain() domain.MessageView {
	r := v.Msg
	out := domain.MessageView{
		Message: domain.Message{
			ID:        domain.MessageID(r.ID),
			Content:   r.Content,
			SenderID:  domain.UserID(r.SenderID),
			IsDirect:  r.IsDirect,
			IsRead:    r.IsRead,
			ReadAt:    r.ReadAt,
			CreatedAt: r.CreatedAt,
		},
		SenderUsername:    v.SenderUsername,
		SenderAvatar:      v.SenderAvatar,
		SenderDisplayName: v.SenderDisplayName,
	}
	if r.ChannelID != nil {
		id := domain.ChannelID(*r.ChannelID)
		out.ChannelID = &id
	}
	if r.RecipientID != nil {
		id := domain.UserID(*r.RecipientID)
		out.RecipientID = &id
	}
	return out
}
