package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/store"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// AuthError is a failed credential refresh. Callers must treat it as fatal
// for the current operation; the stored credential is left untouched.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: token refresh failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Guard ensures a user's access token is valid before any Asana call.
type Guard struct {
	store    *store.Store
	oauthCfg *oauth2.Config
	log      *zap.Logger
}

// NewGuard creates a token guard over the given store and OAuth config.
func NewGuard(st *store.Store, oauthCfg *oauth2.Config, log *zap.Logger) *Guard {
	return &Guard{store: st, oauthCfg: oauthCfg, log: log}
}

// EnsureFresh refreshes the user's credential when it is expired or absent.
// On the refresh path the full triple (access token, refresh token, expiry)
// is persisted in a single write before the user is mutated in place; on any
// failure the stored record is unmodified. Valid tokens are a no-op.
func (g *Guard) EnsureFresh(ctx context.Context, user *models.User) error {
	if user.RefreshToken == "" {
		return nil
	}
	if user.AccessToken != "" && user.TokenExpiredAt.After(time.Now()) {
		return nil
	}

	g.log.Info("refreshing access token", zap.String("user", user.ID))
	tokenSource := g.oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: user.RefreshToken})
	newToken, err := tokenSource.Token()
	if err != nil {
		return &AuthError{Err: err}
	}

	refreshToken := user.RefreshToken
	if newToken.RefreshToken != "" && newToken.RefreshToken != refreshToken {
		g.log.Info("rotating refresh token", zap.String("user", user.ID))
		refreshToken = newToken.RefreshToken
	}

	if err := g.store.UpdateCredential(user.ID, newToken.AccessToken, refreshToken, newToken.Expiry); err != nil {
		return fmt.Errorf("persist refreshed credential: %w", err)
	}

	user.AccessToken = newToken.AccessToken
	user.RefreshToken = refreshToken
	user.TokenExpiredAt = newToken.Expiry
	return nil
}
