// Package jira provides a client for the Jira Cloud REST API scoped to a
// single workspace, covering issue creation, attachment upload, sub-task
// creation, and the lookups behind the bug form.
package jira

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"

	"github.com/VrtlyJoe/bug-cutter-frontend/internal/logging"
	"github.com/VrtlyJoe/bug-cutter-frontend/pkg/models"
)

const (
	requestTimeout = 30 * time.Second

	// searchPageSize bounds issue and user searches.
	searchPageSize = 10

	// categoryFieldName is the display name of the custom field holding the
	// bug category, matched case-insensitively.
	categoryFieldName = "Bug category"
)

// Client handles interactions with the Jira Cloud API for one workspace.
type Client struct {
	client     *jira.Client
	projectKey string
}

// NewClient builds a tracker client for the given workspace using the
// caller's bearer token. apiBaseURL is the Atlassian gateway
// (https://api.atlassian.com outside of tests).
func NewClient(ctx context.Context, apiBaseURL, cloudID, token, projectKey string) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = requestTimeout

	baseURL := fmt.Sprintf("%s/ex/jira/%s/", strings.TrimSuffix(apiBaseURL, "/"), cloudID)
	client, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return &Client{
		client:     client,
		projectKey: projectKey,
	}, nil
}

// CreateIssue submits a new Bug issue built from the draft and returns its
// key. The description is wrapped in an Atlassian Document Format paragraph,
// and the category is only applied when categoryFieldID is known.
func (c *Client) CreateIssue(ctx context.Context, draft models.IssueDraft, categoryFieldID string) (string, error) {
	fields := map[string]any{
		"project":     map[string]string{"key": c.projectKey},
		"summary":     draft.Summary,
		"description": descriptionDoc(draft.Description),
		"issuetype":   map[string]string{"name": "Bug"},
	}
	if draft.Priority != "" {
		fields["priority"] = map[string]string{"name": draft.Priority}
	}
	if draft.Category != "" && categoryFieldID != "" {
		fields[categoryFieldID] = map[string]string{"value": draft.Category}
	}
	if draft.Assignee != "" {
		fields["assignee"] = map[string]string{"accountId": draft.Assignee}
	}
	if components := SplitComponents(draft.Components); len(components) > 0 {
		refs := make([]map[string]string, 0, len(components))
		for _, name := range components {
			refs = append(refs, map[string]string{"name": name})
		}
		fields["components"] = refs
	}

	req, err := c.client.NewRequestWithContext(ctx, http.MethodPost, "rest/api/3/issue", map[string]any{"fields": fields})
	if err != nil {
		return "", fmt.Errorf("failed to build create request: %w", err)
	}

	var created struct {
		Key string `json:"key"`
	}
	resp, err := c.client.Do(req, &created)
	if err != nil {
		return "", c.apiError("create issue", resp, err)
	}

	logging.Info("issue created", "key", created.Key, "project", c.projectKey)
	return created.Key, nil
}

// UploadAttachment posts one file to the issue's attachment endpoint. Binary
// uploads require the no-check anti-CSRF header.
func (c *Client) UploadAttachment(ctx context.Context, issueKey string, att models.Attachment) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, att.Filename))
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to build attachment form: %w", err)
	}
	if _, err := part.Write(att.Data); err != nil {
		return fmt.Errorf("failed to write attachment body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize attachment form: %w", err)
	}

	endpoint := fmt.Sprintf("rest/api/3/issue/%s/attachments", issueKey)
	req, err := c.client.NewMultiPartRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("failed to build attachment request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "no-check")

	var uploaded []struct {
		Filename string `json:"filename"`
	}
	resp, err := c.client.Do(req, &uploaded)
	if err != nil {
		return c.apiError("upload attachment", resp, err)
	}
	return nil
}

// CreateSubtask creates a Sub-task issue under the given parent key.
func (c *Client) CreateSubtask(ctx context.Context, parentKey, summary string) error {
	subtask := &jira.Issue{
		Fields: &jira.IssueFields{
			Project: jira.Project{Key: c.projectKey},
			Parent:  &jira.Parent{Key: parentKey},
			Summary: summary,
			Type:    jira.IssueType{Name: "Sub-task"},
		},
	}

	_, resp, err := c.client.Issue.CreateWithContext(ctx, subtask)
	if err != nil {
		return c.apiError("create sub-task", resp, err)
	}
	return nil
}

// SearchIssues finds recent issues in the project whose summary contains the
// query string.
func (c *Client) SearchIssues(ctx context.Context, query string) ([]models.IssueSummary, error) {
	jql := fmt.Sprintf("summary ~ %q AND project=%q order by updated DESC", query, c.projectKey)

	var issues []jira.Issue
	err := c.withRetry(ctx, func() error {
		found, resp, err := c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
			MaxResults: searchPageSize,
			Fields:     []string{"summary"},
		})
		if err != nil {
			return c.apiError("search issues", resp, err)
		}
		issues = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]models.IssueSummary, 0, len(issues))
	for _, issue := range issues {
		results = append(results, models.IssueSummary{Key: issue.Key, Summary: issue.Fields.Summary})
	}
	return results, nil
}

// GetIssue fetches one issue with its sub-task lines.
func (c *Client) GetIssue(ctx context.Context, issueKey string) (models.IssueDetails, error) {
	var issue *jira.Issue
	err := c.withRetry(ctx, func() error {
		found, resp, err := c.client.Issue.GetWithContext(ctx, issueKey, nil)
		if err != nil {
			return c.apiError("get issue", resp, err)
		}
		issue = found
		return nil
	})
	if err != nil {
		return models.IssueDetails{}, err
	}

	details := models.IssueDetails{
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Description: issue.Fields.Description,
		Subtasks:    []string{},
	}
	for _, subtask := range issue.Fields.Subtasks {
		details.Subtasks = append(details.Subtasks, subtask.Key+" – "+subtask.Fields.Summary)
	}
	return details, nil
}

// GetPriorities returns the priority names in upstream order.
func (c *Client) GetPriorities(ctx context.Context) ([]string, error) {
	var priorities []jira.Priority
	err := c.withRetry(ctx, func() error {
		found, resp, err := c.client.Priority.GetListWithContext(ctx)
		if err != nil {
			return c.apiError("list priorities", resp, err)
		}
		priorities = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(priorities))
	for _, priority := range priorities {
		names = append(names, priority.Name)
	}
	return names, nil
}

// FindCategoryField scans the field catalog for the bug category field.
// The scan is order dependent: the first name match wins. The second return
// value reports whether the field exists at all.
func (c *Client) FindCategoryField(ctx context.Context) (models.CategoryField, bool, error) {
	var catalog []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		AllowedValues []struct {
			Value string `json:"value"`
		} `json:"allowedValues"`
	}
	err := c.withRetry(ctx, func() error {
		req, err := c.client.NewRequestWithContext(ctx, http.MethodGet, "rest/api/3/field", nil)
		if err != nil {
			return fmt.Errorf("failed to build field catalog request: %w", err)
		}
		resp, err := c.client.Do(req, &catalog)
		if err != nil {
			return c.apiError("list fields", resp, err)
		}
		return nil
	})
	if err != nil {
		return models.CategoryField{}, false, err
	}

	for _, field := range catalog {
		if !strings.EqualFold(field.Name, categoryFieldName) {
			continue
		}
		result := models.CategoryField{FieldID: field.ID}
		for _, allowed := range field.AllowedValues {
			result.AllowedValues = append(result.AllowedValues, allowed.Value)
		}
		return result, true, nil
	}
	return models.CategoryField{}, false, nil
}

// SearchUsers finds people matching the query, capped at one page.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.UserRecord, error) {
	var users []jira.User
	err := c.withRetry(ctx, func() error {
		found, resp, err := c.client.User.FindWithContext(ctx, query, jira.WithMaxResults(searchPageSize))
		if err != nil {
			return c.apiError("search users", resp, err)
		}
		users = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.UserRecord, 0, len(users))
	for _, user := range users {
		records = append(records, models.UserRecord{
			AccountID:   user.AccountID,
			DisplayName: user.DisplayName,
			Email:       user.EmailAddress,
		})
	}
	return records, nil
}

// GetComponents lists the component names of the fixed project.
func (c *Client) GetComponents(ctx context.Context) ([]string, error) {
	var project *jira.Project
	err := c.withRetry(ctx, func() error {
		found, resp, err := c.client.Project.GetWithContext(ctx, c.projectKey)
		if err != nil {
			return c.apiError("get project", resp, err)
		}
		project = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(project.Components))
	for _, component := range project.Components {
		names = append(names, component.Name)
	}
	return names, nil
}

// SplitComponents parses a comma-separated component list: entries are
// trimmed, empty tokens dropped, order preserved.
func SplitComponents(components string) []string {
	var names []string
	for _, token := range strings.Split(components, ",") {
		if name := strings.TrimSpace(token); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// apiError converts a failed tracker call into the typed error taxonomy,
// capturing the raw response body for diagnostics.
func (c *Client) apiError(op string, resp *jira.Response, err error) error {
	status := 0
	body := ""
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
		if raw, readErr := io.ReadAll(resp.Body); readErr == nil {
			body = string(raw)
		}
		resp.Body.Close()
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &models.AuthError{
			Reason: fmt.Sprintf("tracker rejected credential during %s (status %d)", op, status),
			Err:    err,
		}
	}
	return &models.UpstreamError{Op: op, StatusCode: status, Body: body, Err: err}
}

// retryMaxElapsed caps the total time spent retrying a read-only call.
const retryMaxElapsed = 15 * time.Second

func newReadBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	return bo
}

// withRetry executes a read-only call with retry for transient failures.
// Mutating calls must not go through here: there is no idempotency key, so a
// retried create could double-submit.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(newReadBackoff(), ctx))
}

// isTransient reports whether an error is worth retrying: rate limiting,
// server-side failures, and network-level errors (status 0).
func isTransient(err error) bool {
	var upstreamErr *models.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return false
	}
	if upstreamErr.StatusCode == 0 {
		return true
	}
	return upstreamErr.StatusCode == http.StatusTooManyRequests || upstreamErr.StatusCode >= 500
}
