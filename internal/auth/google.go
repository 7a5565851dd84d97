package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie     = "oauth_state"
	userInfoURL     = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateCookieSecs = 300
)

// ErrInvalidState is returned when the callback state does not match the
// state cookie.
var ErrInvalidState = errors.New("invalid oauth state")

// GoogleUserInfo represents the user info returned by Google
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleProvider runs the OAuth authorization-code flow against Google.
type GoogleProvider struct {
	oauth2Config *oauth2.Config
	userInfoURL  string
	secure       bool
}

// NewGoogleProvider creates a provider redirecting back to redirectURL.
func NewGoogleProvider(clientID, clientSecret, redirectURL string, secureCookies bool) *GoogleProvider {
	return &GoogleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: userInfoURL,
		secure:      secureCookies,
	}
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HandleLogin stores a fresh state in a short-lived cookie and redirects to
// Google's consent screen.
func (p *GoogleProvider) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieSecs,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, p.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusTemporaryRedirect)
}

// Complete validates the callback request, exchanges the code and returns
// the Google profile of the signed-in user.
func (p *GoogleProvider) Complete(w http.ResponseWriter, r *http.Request) (*GoogleUserInfo, error) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		return nil, ErrInvalidState
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if msg := r.URL.Query().Get("error"); msg != "" {
		return nil, fmt.Errorf("google returned error: %s", msg)
	}

	token, err := p.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return p.userInfo(r.Context(), token)
}

func (p *GoogleProvider) userInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := p.oauth2Config.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API error: %s", string(body))
	}

	var info GoogleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse user info: %w", err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, errors.New("google profile is missing id or email")
	}
	return &info, nil
}
