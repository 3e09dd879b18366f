package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuthCredentials authorize as a Google user instead of a service account.
// Inline JSON wins over a file path for both the client and the token.
type OAuthCredentials struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

// IsSet reports whether an OAuth client is configured.
func (c OAuthCredentials) IsSet() bool {
	return strings.TrimSpace(c.ClientJSON) != "" || strings.TrimSpace(c.ClientFile) != ""
}

// NewWithOAuth creates a client that acts with a previously saved user token.
// The token is refreshed transparently while the client lives.
func NewWithOAuth(ctx context.Context, opts Options, creds OAuthCredentials) (*Client, error) {
	cfg, err := OAuthConfig(creds.ClientJSON, creds.ClientFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(creds.TokenJSON, creds.TokenFile)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Using OAuth user credentials", "has_refresh_token", tok.RefreshToken != "")
	return New(ctx, opts, goption.WithTokenSource(cfg.TokenSource(ctx, tok)))
}

// OAuthConfig reads an installed-app OAuth client scoped to spreadsheets.
func OAuthConfig(clientJSON, clientFile string) (*oauth2.Config, error) {
	data, err := inlineOrFile(clientJSON, clientFile, "oauth client")
	if err != nil {
		return nil, err
	}
	cfg, err := goauth.ConfigFromJSON(data, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(tokenJSON, tokenFile string) (*oauth2.Token, error) {
	data, err := inlineOrFile(tokenJSON, tokenFile, "oauth token")
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("oauth token has neither access nor refresh token")
	}
	return &tok, nil
}

// SaveToken writes tok to path readable only by the owner, creating the
// parent directory if needed.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// Login runs the installed-app consent flow. It serves the redirect on ln,
// hands the consent URL to open and exchanges the returned code for a token.
// Login gives up when ctx is done.
func Login(ctx context.Context, cfg *oauth2.Config, ln net.Listener, open func(authURL string)) (*oauth2.Token, error) {
	conf := *cfg
	conf.RedirectURL = "http://" + ln.Addr().String() + "/callback"
	state := uuid.NewString()

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)
	deliver := func(r result) {
		select {
		case results <- r:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			deliver(result{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			deliver(result{code: q.Get("code")})
		}
	})
	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	open(conf.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := conf.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization aborted: %w", ctx.Err())
	}
}

func inlineOrFile(inline, file, what string) ([]byte, error) {
	inline, file = strings.TrimSpace(inline), strings.TrimSpace(file)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("missing %s", what)
	}
}
