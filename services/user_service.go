package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/crypto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserService manages user accounts and their linked identity providers
type UserService struct {
	db     *gorm.DB
	sealer *crypto.Sealer
}

// NewUserService creates a new user service. sealer encrypts provider tokens at rest.
func NewUserService(db *gorm.DB, sealer *crypto.Sealer) *UserService {
	return &UserService{db: db, sealer: sealer}
}

// OAuthProfile is the identity returned by a provider after sign-in
type OAuthProfile struct {
	Provider       string     `json:"provider" validate:"required,max=50"`
	ProviderUserID string     `json:"provider_user_id" validate:"required,max=255"`
	Email          string     `json:"email" validate:"required,email,max=255"`
	Name           string     `json:"name" validate:"required,max=120"`
	PictureURL     *string    `json:"picture_url" validate:"omitempty,max=500"`
	EmailVerified  bool       `json:"email_verified"`
	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	ExpiresAt      *time.Time `json:"-"`
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, database.Translate("user", err)
	}
	return &user, nil
}

// LinkOAuthAccount signs in with an external identity. The user is matched by email and
// created on first sign-in; the provider account is created or refreshed with sealed tokens.
func (s *UserService) LinkOAuthAccount(ctx context.Context, profile OAuthProfile) (*model.User, error) {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if err := validateRequest("oauth_account", profile); err != nil {
		return nil, err
	}

	accessToken, err := s.sealer.SealPtr(profile.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to seal access token: %w", err)
	}
	refreshToken, err := s.sealer.SealPtr(profile.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to seal refresh token: %w", err)
	}

	var user model.User
	link := func(tx *gorm.DB) error {
		user = model.User{}
		email := profile.Email
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = model.User{
				Email:      email,
				Name:       profile.Name,
				PictureURL: profile.PictureURL,
				IsActive:   true,
				IsVerified: profile.EmailVerified,
			}
			if err := tx.Create(&user).Error; err != nil {
				return database.Translate("user", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load user: %w", err)
		default:
			if profile.PictureURL != nil {
				user.PictureURL = profile.PictureURL
			}
			user.IsVerified = user.IsVerified || profile.EmailVerified
			if err := tx.Save(&user).Error; err != nil {
				return database.Translate("user", err)
			}
		}

		account := model.OAuthAccount{
			UserID:         user.ID,
			Provider:       profile.Provider,
			ProviderUserID: profile.ProviderUserID,
			AccessToken:    accessToken,
			RefreshToken:   refreshToken,
			ExpiresAt:      profile.ExpiresAt,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "access_token", "refresh_token", "expires_at", "updated_at"}),
		}).Create(&account).Error
		return database.Translate("oauth_account", err)
	}

	err = withTx(ctx, s.db, link)
	if database.IsUniqueViolation(err) {
		// a concurrent first login created the user; the retry links to it
		err = withTx(ctx, s.db, link)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ProviderTokens returns the decrypted tokens stored for a provider account
func (s *UserService) ProviderTokens(ctx context.Context, userID uint, provider string) (access, refresh string, err error) {
	var account model.OAuthAccount
	err = s.db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).First(&account).Error
	if err != nil {
		return "", "", database.Translate("oauth_account", err)
	}
	if account.AccessToken != nil {
		if access, err = s.sealer.Open(*account.AccessToken); err != nil {
			return "", "", err
		}
	}
	if account.RefreshToken != nil {
		if refresh, err = s.sealer.Open(*account.RefreshToken); err != nil {
			return "", "", err
		}
	}
	return access, refresh, nil
}
