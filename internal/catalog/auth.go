package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"postcatalog/internal/apperr"
	"postcatalog/internal/models"
	"postcatalog/internal/store"
)

// Authenticate checks an author's credentials. When the account has a
// second factor enabled, code must be a currently valid TOTP code. Every
// failure is reported as apperr.ErrUnauthorized without saying which
// part was wrong.
func (s *Service) Authenticate(ctx context.Context, email, password, code string) (*models.User, error) {
	email = strings.TrimSpace(email)
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !store.CheckPassword(user, password) {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	if user.RequiresTOTP() && !totp.Validate(strings.TrimSpace(code), *user.TOTPSecret) {
		return nil, fmt.Errorf("invalid one-time code: %w", apperr.ErrUnauthorized)
	}
	return user, nil
}

// TOTPIssuer names the service in authenticator apps.
const TOTPIssuer = "postcatalog"

// EnrollTOTP generates a fresh TOTP secret for the user with the given
// email and enables the second factor. The returned key carries the
// secret and the otpauth:// URL for authenticator apps.
func (s *Service) EnrollTOTP(ctx context.Context, email string) (*otp.Key, error) {
	email = strings.TrimSpace(email)
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %q: %w", email, apperr.ErrNotFound)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	if err := s.store.Users().EnableTOTP(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}
	return key, nil
}
