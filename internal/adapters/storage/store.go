// Package storage implements the chat stores on top of gorm.
package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

var (
	_ core.UserStore    = (*Store)(nil)
	_ core.ChannelStore = (*Store)(nil)
	_ core.MessageStore = (*Store)(nil)
)

// Open opens (or creates) the sqlite database at path and migrates it.
func Open(path string, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// every pooled connection would otherwise see its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Str("module", "storage").Str("path", path).Msg("database ready")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&userRow{}, &channelRow{}, &channelMemberRow{}, &messageRow{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Store provides access to users, channels, memberships and messages.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func wrap(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}

// users

func (s *Store) UpsertUser(ctx context.Context, id domain.Identity) error {
	now := time.Now()
	row := userRow{
		ID:          string(id.ID),
		Username:    id.Username,
		DisplayName: id.DisplayName,
		AvatarURL:   id.AvatarURL,
		LastSeen:    now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "avatar_url", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return wrap("upsert user", err)
	}
	return nil
}

func (s *Store) SetPresence(ctx context.Context, uid domain.UserID, online bool, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&userRow{}).
		Where("id = ?", string(uid)).
		Updates(map[string]any{"is_online": online, "last_seen": at}).Error
	if err != nil {
		return wrap("set presence", err)
	}
	return nil
}

// ResetPresence marks every user offline. Presence lives in memory, so
// whatever the table says at process start or shutdown is stale.
func (s *Store) ResetPresence(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&userRow{}).
		Where("is_online = ?", true).
		Update("is_online", false)
	if res.Error != nil {
		return 0, wrap("reset presence", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) GetUser(ctx context.Context, uid domain.UserID) (*domain.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", string(uid)).Error; err != nil {
		return nil, wrap("get user", err)
	}
	return &domain.User{
		Identity: domain.Identity{
			ID:          domain.UserID(row.ID),
			Username:    row.Username,
			DisplayName: row.DisplayName,
			AvatarURL:   row.AvatarURL,
		},
		IsOnline: row.IsOnline,
		LastSeen: row.LastSeen,
	}, nil
}

// channels

// SeedDefaultChannels creates the public starter channels when missing.
func (s *Store) SeedDefaultChannels(ctx context.Context) error {
	rows := []channelRow{
		{Name: "general", Description: "General discussion for everyone"},
		{Name: "random", Description: "Off-topic conversations"},
		{Name: "announcements", Description: "Important announcements"},
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return wrap("seed channels", err)
	}
	return nil
}

func (s *Store) GetChannel(ctx context.Context, id domain.ChannelID) (*domain.Channel, error) {
	var row channelRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", int64(id)).Error; err != nil {
		return nil, wrap("get channel", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AddMember(ctx context.Context, m domain.Membership) error {
	row := channelMemberRow{ChannelID: int64(m.ChannelID), UserID: string(m.UserID), JoinedAt: m.JoinedAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return wrap("add member", err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, channelID domain.ChannelID, uid domain.UserID) error {
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", int64(channelID), string(uid)).
		Delete(&channelMemberRow{}).Error
	if err != nil {
		return wrap("remove member", err)
	}
	return nil
}

func (s *Store) ChannelsOf(ctx context.Context, uid domain.UserID) ([]domain.ChannelID, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&channelMemberRow{}).
		Where("user_id = ?", string(uid)).
		Order("channel_id").
		Pluck("channel_id", &ids).Error
	if err != nil {
		return nil, wrap("channels of user", err)
	}
	return lo.Map(ids, func(id int64, _ int) domain.ChannelID { return domain.ChannelID(id) }), nil
}

func (s *Store) CountMembers(ctx context.Context, channelID domain.ChannelID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&channelMemberRow{}).
		Where("channel_id = ?", int64(channelID)).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count members", err)
	}
	return n, nil
}

// messages

func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) error {
	row := messageRowFrom(m)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return wrap("create message", err)
	}
	m.ID = domain.MessageID(row.ID)
	m.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) viewQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("messages").
		Select("messages.*, users.username AS sender_username, users.avatar_url AS sender_avatar, users.display_name AS sender_display_name").
		Joins("JOIN users ON users.id = messages.sender_id")
}

func (s *Store) GetMessageView(ctx context.Context, id domain.MessageID) (*domain.MessageView, error) {
	var rows []messageViewRow
	if err := s.viewQuery(ctx).Where("messages.id = ?", int64(id)).Limit(1).Scan(&rows).Error; err != nil {
		return nil, wrap("get message", err)
	}
	if len(rows) == 0 {
		return nil, wrap("get message", gorm.ErrRecordNotFound)
	}
	v := rows[0].toDomain()
	return &v, nil
}

func (s *Store) SenderOf(ctx context.Context, id domain.MessageID) (domain.UserID, error) {
	var row messageRow
	if err := s.db.WithContext(ctx).Select("sender_id").First(&row, "id = ?", int64(id)).Error; err != nil {
		return "", wrap("sender of message", err)
	}
	return domain.UserID(row.SenderID), nil
}

func (s *Store) MarkRead(ctx context.Context, id domain.MessageID, reader domain.UserID, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&messageRow{}).
		Where("id = ? AND recipient_id = ?", int64(id), string(reader)).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return 0, wrap("mark read", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) MarkAllRead(ctx context.Context, sender, reader domain.UserID, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&messageRow{}).
		Where("sender_id = ? AND recipient_id = ? AND is_direct = ? AND is_read = ?", string(sender), string(reader), true, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return 0, wrap("mark all read", res.Error)
	}
	return res.RowsAffected, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return min(limit, MaxHistoryLimit)
}

func (s *Store) history(q *gorm.DB, hq core.HistoryQuery) ([]domain.MessageView, error) {
	if hq.Before != nil {
		q = q.Where("messages.id < ?", int64(*hq.Before))
	}
	var rows []messageViewRow
	if err := q.Order("messages.id DESC").Limit(clampLimit(hq.Limit)).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := lo.Map(rows, func(r messageViewRow, _ int) domain.MessageView { return r.toDomain() })
	slices.Reverse(out)
	return out, nil
}

// ChannelHistory returns the newest page of a channel, oldest first.
func (s *Store) ChannelHistory(ctx context.Context, channelID domain.ChannelID, hq core.HistoryQuery) ([]domain.MessageView, error) {
	q := s.viewQuery(ctx).Where("messages.channel_id = ? AND messages.is_direct = ?", int64(channelID), false)
	out, err := s.history(q, hq)
	if err != nil {
		return nil, wrap("channel history", err)
	}
	return out, nil
}

// DirectHistory returns the newest page of the a<->b conversation, oldest first.
func (s *Store) DirectHistory(ctx context.Context, a, b domain.UserID, hq core.HistoryQuery) ([]domain.MessageView, error) {
	q := s.viewQuery(ctx).Where(
		"messages.is_direct = ? AND ((messages.sender_id = ? AND messages.recipient_id = ?) OR (messages.sender_id = ? AND messages.recipient_id = ?))",
		true, string(a), string(b), string(b), string(a),
	)
	out, err := s.history(q, hq)
	if err != nil {
		return nil, wrap("direct history", err)
	}
	return out, nil
}
