package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/VrtlyJoe/bug-cutter-frontend/internal/config"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/logging"
)

const (
	atlassianAuthURL  = "https://auth.atlassian.com/authorize"
	atlassianTokenURL = "https://auth.atlassian.com/oauth/token"

	stateCookieName   = "bugcutter_oauth_state"
	stateCookieMaxAge = 600
)

// oauthFlow holds the authorization-code flow configuration. The resulting
// access token is handed to the frontend and treated as an opaque credential
// from then on.
type oauthFlow struct {
	config *oauth2.Config
}

func newOAuthFlow(cfg *config.JiraConfig) *oauthFlow {
	return &oauthFlow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"read:jira-user", "read:jira-work", "write:jira-work", "offline_access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  atlassianAuthURL,
				TokenURL: atlassianTokenURL,
			},
		},
	}
}

func (s *Server) authStart(c *gin.Context) {
	state, err := generateState()
	if err != nil {
		logging.Error("failed to generate oauth state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}

	c.SetCookie(stateCookieName, state, stateCookieMaxAge, "/", "", false, true)

	authURL := s.oauth.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("audience", "api.atlassian.com"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (s *Server) authCallback(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing auth code"})
		return
	}

	storedState, err := c.Cookie(stateCookieName)
	if err != nil || c.Query("state") != storedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}

	token, err := s.oauth.config.Exchange(ctx, code)
	if err != nil {
		logging.Error("token exchange failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to exchange token"})
		return
	}

	redirect := s.frontendURL + "?access_token=" + url.QueryEscape(token.AccessToken)
	c.Redirect(http.StatusTemporaryRedirect, redirect)
}

func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
