package spotify

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenURL is the Spotify accounts token endpoint.
const DefaultTokenURL = "https://accounts.spotify.com/api/token"

// NewAppHTTPClient returns an HTTP client authenticated with the client
// credentials flow. It is enough for reading public playlists and audio
// features. Tokens are fetched and refreshed lazily.
func NewAppHTTPClient(ctx context.Context, clientID, clientSecret, tokenURL string, timeout time.Duration) *http.Client {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	hc := cfg.Client(ctx)
	hc.Timeout = timeout
	return hc
}

// NewUserHTTPClient returns an HTTP client that sends a user access token
// with the playlist-modify scopes. Publishing playlists needs a user token;
// obtaining one is left to the caller.
func NewUserHTTPClient(ctx context.Context, accessToken string, timeout time.Duration) *http.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = timeout
	return hc
}
