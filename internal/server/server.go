// Package server exposes the bug cutter HTTP API and the OAuth entry points.
package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VrtlyJoe/bug-cutter-frontend/internal/config"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/logging"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/notify"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/service"
	"github.com/VrtlyJoe/bug-cutter-frontend/pkg/models"
)

// Server wires the service and notifier behind HTTP handlers.
type Server struct {
	svc         *service.Service
	notifier    *notify.Notifier
	oauth       *oauthFlow
	frontendURL string
}

// New creates the server.
func New(cfg *config.Config, svc *service.Service, notifier *notify.Notifier) *Server {
	return &Server{
		svc:         svc,
		notifier:    notifier,
		oauth:       newOAuthFlow(&cfg.Jira),
		frontendURL: cfg.Server.FrontendURL,
	}
}

// Router builds the route table.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware())

	router.GET("/", s.health)

	auth := router.Group("/auth")
	auth.GET("/start", s.authStart)
	auth.GET("/callback", s.authCallback)

	router.POST("/submit_bug/", s.submitBug)
	router.GET("/options", s.getOptions)
	router.GET("/search_bugs", s.searchBugs)
	router.GET("/bug/:issue_id", s.getBug)
	router.POST("/bug/:issue_id/add_subtask", s.addSubtasks)
	router.GET("/users/search", s.searchUsers)
	router.GET("/components", s.getComponents)

	return router
}

// Run starts the HTTP server on the given address.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Bug Cutter backend live"})
}

func (s *Server) submitBug(c *gin.Context) {
	ctx := c.Request.Context()

	token := c.PostForm("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	draft := models.IssueDraft{
		Summary:     c.PostForm("summary"),
		Description: c.PostForm("description"),
		Priority:    c.PostForm("priority"),
		Category:    c.PostForm("category"),
		Assignee:    c.PostForm("assignee"),
		Components:  c.PostForm("components"),
	}
	if subtasks := c.PostForm("subtasks"); subtasks != "" {
		draft.Subtasks = strings.Split(subtasks, "\n")
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fileHeader := range form.File["files"] {
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
				return
			}
			draft.Attachments = append(draft.Attachments, models.Attachment{
				Filename:    fileHeader.Filename,
				ContentType: fileHeader.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	issueKey, err := s.svc.SubmitBug(ctx, token, draft)
	if err != nil {
		writeError(c, err)
		return
	}

	// Notification is best effort and never affects the response. The
	// reporter line degrades to empty when the profile fetch fails.
	reporter := ""
	if profile, err := s.svc.Profile(ctx, token); err == nil {
		reporter = profile.Name
	}
	s.notifier.Notify(ctx, notify.Notification{
		IssueKey: issueKey,
		Summary:  draft.Summary,
		Priority: draft.Priority,
		Category: draft.Category,
		Reporter: reporter,
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "issue_key": issueKey})
}

func (s *Server) getOptions(c *gin.Context) {
	token, ok := queryToken(c)
	if !ok {
		return
	}
	options, err := s.svc.GetFormOptions(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

func (s *Server) searchBugs(c *gin.Context) {
	token, ok := queryToken(c)
	if !ok {
		return
	}
	results, err := s.svc.SearchBugs(c.Request.Context(), token, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) getBug(c *gin.Context) {
	token, ok := queryToken(c)
	if !ok {
		return
	}
	details, err := s.svc.GetBug(c.Request.Context(), token, c.Param("issue_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (s *Server) addSubtasks(c *gin.Context) {
	token := c.PostForm("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	summaries := strings.Split(c.PostForm("subtasks"), "\n")
	if err := s.svc.AddSubtasks(c.Request.Context(), token, c.Param("issue_id"), summaries); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) searchUsers(c *gin.Context) {
	token, ok := queryToken(c)
	if !ok {
		return
	}
	users, err := s.svc.SearchUsers(c.Request.Context(), token, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": users})
}

func (s *Server) getComponents(c *gin.Context) {
	token, ok := queryToken(c)
	if !ok {
		return
	}
	components, err := s.svc.GetComponents(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": components})
}

func queryToken(c *gin.Context) (string, bool) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return "", false
	}
	return token, true
}

// writeError maps the typed error taxonomy onto HTTP statuses. Partial
// submissions carry the created issue key so the caller can tell the user
// the ticket exists despite the failure.
func writeError(c *gin.Context, err error) {
	var authErr *models.AuthError
	var valErr *models.ValidationError
	var partialErr *models.PartialSubmissionError

	switch {
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Error()})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Error()})
	case errors.As(err, &partialErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": partialErr.Error(), "issue_key": partialErr.IssueKey})
	default:
		var upstreamErr *models.UpstreamError
		if errors.As(err, &upstreamErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": upstreamErr.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
	logging.Error("request failed", "path", c.Request.URL.Path, "error", err)
}

// corsMiddleware allows the hosted form frontend to call this API from
// another origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
