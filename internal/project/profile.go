package project

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/playcraft/internal/auth"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/store"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

const maxBioLen = 500

// ProfileInput holds profile fields to change. Nil fields are kept.
type ProfileInput struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// ProfileService reads and updates user profiles.
type ProfileService struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewProfileService creates a profile service.
func NewProfileService(st *store.Store, logger zerolog.Logger) *ProfileService {
	return &ProfileService{
		store:  st,
		logger: logger.With().Str("component", "profile").Logger(),
	}
}

// GetCurrentProfile returns the current user's profile, or nil if it was
// never created.
func (s *ProfileService) GetCurrentProfile(ctx context.Context) (*store.Profile, error) {
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, user.ID)
}

// GetProfile returns any user's profile, or nil.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*store.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, perrors.Wrap("database", "get profile", err)
	}
	return p, nil
}

// UpdateProfile creates or updates the current user's profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, in ProfileInput) (*store.Profile, error) {
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if res := ValidateProfile(in); !res.Valid {
		return nil, perrors.Invalid("%s", res.Error)
	}

	p, err := s.store.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, perrors.Wrap("database", "get profile", err)
	}
	if p == nil {
		p = &store.Profile{UserID: user.ID, DisplayName: user.Name}
	}
	if in.Username != nil {
		p.Username = strings.ToLower(strings.TrimSpace(*in.Username))
	}
	if in.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.AvatarURL != nil {
		p.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if p.Username == "" {
		return nil, perrors.Invalid("username is required")
	}

	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return nil, perrors.Wrap("database", "update profile", err)
	}
	s.logger.Info().Str("user_id", user.ID).Msg("profile updated")
	return p, nil
}

// ValidateProfile checks the fields present in in.
func ValidateProfile(in ProfileInput) perrors.ValidationResult {
	if in.Username != nil {
		u := strings.ToLower(strings.TrimSpace(*in.Username))
		if !usernamePattern.MatchString(u) {
			return perrors.Rejected("username must be 3-30 characters of a-z, 0-9 or _")
		}
	}
	if in.DisplayName != nil && len(strings.TrimSpace(*in.DisplayName)) > maxNameLen {
		return perrors.Rejected("display name exceeds %d characters", maxNameLen)
	}
	if in.AvatarURL != nil && *in.AvatarURL != "" {
		u, err := url.Parse(strings.TrimSpace(*in.AvatarURL))
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return perrors.Rejected("avatar url must be an http(s) URL")
		}
	}
	if in.Bio != nil && len(*in.Bio) > maxBioLen {
		return perrors.Rejected("bio exceeds %d characters", maxBioLen)
	}
	return perrors.Valid()
}
