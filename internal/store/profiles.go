package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Profile is a user's public profile.
type Profile struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Bio         string    `json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GetProfile returns the profile of userID, or nil if there is none.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &Profile{}
	var avatar sql.NullString
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
	SELECT user_id, username, display_name, avatar_url, bio, created_at, updated_at
	FROM profiles WHERE user_id = ?`, userID).Scan(
		&p.UserID, &p.Username, &p.DisplayName, &avatar, &p.Bio, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.AvatarURL = avatar.String
	p.CreatedAt = fromMS(created)
	p.UpdatedAt = fromMS(updated)
	return p, nil
}

// UpsertProfile inserts or updates p, keeping the original created_at.
func (s *Store) UpsertProfile(ctx context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO profiles (user_id, username, display_name, avatar_url, bio, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		display_name = excluded.display_name,
		avatar_url = excluded.avatar_url,
		bio = excluded.bio,
		updated_at = excluded.updated_at`,
		p.UserID, p.Username, p.DisplayName, nullString(p.AvatarURL), p.Bio, ms(p.CreatedAt), ms(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
