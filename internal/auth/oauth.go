// Package auth owns the Asana OAuth credential lifecycle: the authorization
// config, the token-refresh guard that gates every outbound Asana call, and
// remote revocation.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/taskbridge/taskbridge/internal/config"
	"golang.org/x/oauth2"
)

// NewOAuthConfig builds the oauth2 config for the Asana endpoints.
func NewOAuthConfig(cfg config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.AsanaClientID,
		ClientSecret: cfg.AsanaClientSecret,
		RedirectURL:  strings.TrimRight(cfg.PublicURL, "/") + "/oauth-callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AsanaAuthURI,
			TokenURL: cfg.AsanaTokenURI,
		},
	}
}

// AuthLink returns the authorization URL carrying the bot and chat user
// identity in the state parameter, so the callback can correlate them.
func AuthLink(oauthCfg *oauth2.Config, botID, chatUserID string) string {
	state := url.Values{"botId": {botID}, "chatUserId": {chatUserID}}
	return oauthCfg.AuthCodeURL(state.Encode())
}

// RevokeToken invalidates a refresh token on the Asana side. The revoke
// endpoint lives next to the token endpoint.
func RevokeToken(ctx context.Context, oauthCfg *oauth2.Config, refreshToken string) error {
	revokeURL := strings.Replace(oauthCfg.Endpoint.TokenURL, "oauth_token", "oauth_revoke", 1)
	form := url.Values{
		"client_id":     {oauthCfg.ClientID},
		"client_secret": {oauthCfg.ClientSecret},
		"token":         {refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("revoke token: status %d", resp.StatusCode)
	}
	return nil
}
