// Package spotify implements the token-bearing media-control client and
// the authorization-code handshake that links a chat user to their account.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	spotifyauth "golang.org/x/oauth2/spotify"

	"muse-backend/application/ports"
	apperrors "muse-backend/pkg/errors"
)

const scopes = "user-read-playback-state user-modify-playback-state"

// Authenticator handles the OAuth authorization-code flow and the persisted
// per-user bearer-token records at key user:{userId}.
type Authenticator struct {
	config *oauth2.Config
	store  ports.Store
}

// NewAuthenticator creates the authenticator
func NewAuthenticator(clientID, clientSecret, redirectURL string, store ports.Store) *Authenticator {
	return &Authenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{scopes},
			Endpoint:     spotifyauth.Endpoint,
		},
		store: store,
	}
}

// AuthURL builds the provider authorization URL carrying the signed state
// token. Implements dispatcher.Linker.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// Exchange trades the callback code for tokens and persists them for the
// user. Token records have no TTL; they live until the user unlinks.
func (a *Authenticator) Exchange(ctx context.Context, userID, code string) error {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return apperrors.NewExternalError("spotify token exchange", err)
	}
	return a.saveToken(ctx, userID, token)
}

// Token returns a live token for the user, refreshing and re-persisting it
// when expired. Returns nil with no error when the user has never linked.
func (a *Authenticator) Token(ctx context.Context, userID string) (*oauth2.Token, error) {
	raw, found, err := a.store.Get(ctx, userKey(userID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var stored oauth2.Token
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, apperrors.NewInternalError("corrupt token record", err)
	}

	fresh, err := a.config.TokenSource(ctx, &stored).Token()
	if err != nil {
		return nil, apperrors.NewExternalError("spotify token refresh", err)
	}

	if fresh.AccessToken != stored.AccessToken {
		if err := a.saveToken(ctx, userID, fresh); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

// Unlink removes the user's token record
func (a *Authenticator) Unlink(ctx context.Context, userID string) error {
	return a.store.Delete(ctx, userKey(userID))
}

func (a *Authenticator) saveToken(ctx context.Context, userID string, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return a.store.Put(ctx, userKey(userID), raw, 0)
}

func userKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}
