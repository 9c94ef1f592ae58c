// Package service implements the bug submission workflow on top of the
// tracker and identity clients. All remote-call failures are converted to
// the typed error taxonomy at this boundary.
package service

import (
	"context"
	"slices"
	"strings"

	"github.com/VrtlyJoe/bug-cutter-frontend/internal/jira"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/logging"
	"github.com/VrtlyJoe/bug-cutter-frontend/pkg/models"
)

// TrackerClient is the tracker surface the service depends on, satisfied by
// *jira.Client.
type TrackerClient interface {
	CreateIssue(ctx context.Context, draft models.IssueDraft, categoryFieldID string) (string, error)
	UploadAttachment(ctx context.Context, issueKey string, att models.Attachment) error
	CreateSubtask(ctx context.Context, parentKey, summary string) error
	SearchIssues(ctx context.Context, query string) ([]models.IssueSummary, error)
	GetIssue(ctx context.Context, issueKey string) (models.IssueDetails, error)
	GetPriorities(ctx context.Context) ([]string, error)
	FindCategoryField(ctx context.Context) (models.CategoryField, bool, error)
	SearchUsers(ctx context.Context, query string) ([]models.UserRecord, error)
	GetComponents(ctx context.Context) ([]string, error)
}

// WorkspaceResolver exchanges a credential for workspace and profile
// information, satisfied by *atlassian.Resolver.
type WorkspaceResolver interface {
	ResolveWorkspace(ctx context.Context, token string) (string, error)
	GetProfile(ctx context.Context, token string) (models.Profile, error)
}

// TrackerFactory builds a tracker client scoped to one workspace and
// credential. A fresh client is built per call sequence; credentials are
// never cached.
type TrackerFactory func(ctx context.Context, cloudID, token string) (TrackerClient, error)

// JiraTrackerFactory returns a factory producing real Jira Cloud clients.
func JiraTrackerFactory(apiBaseURL, projectKey string) TrackerFactory {
	return func(ctx context.Context, cloudID, token string) (TrackerClient, error) {
		return jira.NewClient(ctx, apiBaseURL, cloudID, token, projectKey)
	}
}

// Service is the orchestration core behind the HTTP surface.
type Service struct {
	resolver   WorkspaceResolver
	newTracker TrackerFactory
	catalog    *CategoryCatalog
}

// New creates the service. The category catalog starts empty and is
// populated by the first GetFormOptions call.
func New(resolver WorkspaceResolver, newTracker TrackerFactory) *Service {
	return &Service{
		resolver:   resolver,
		newTracker: newTracker,
		catalog:    NewCategoryCatalog(),
	}
}

// defaultCategories is the fallback when the category field exists but
// defines no restricted value set.
func defaultCategories() []string {
	return []string{"Web UI", "App", "Back End", "Admin", "Other"}
}

func (s *Service) tracker(ctx context.Context, token string) (TrackerClient, error) {
	cloudID, err := s.resolver.ResolveWorkspace(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.newTracker(ctx, cloudID, token)
}

// SubmitBug runs the submission sequence: create the issue, upload
// attachments in order, create sub-tasks in order. A failure after creation
// returns a PartialSubmissionError carrying the issue key; the issue itself
// is never rolled back.
func (s *Service) SubmitBug(ctx context.Context, token string, draft models.IssueDraft) (string, error) {
	if strings.TrimSpace(draft.Summary) == "" {
		return "", &models.ValidationError{Field: "summary", Reason: "must not be empty"}
	}
	if strings.TrimSpace(draft.Description) == "" {
		return "", &models.ValidationError{Field: "description", Reason: "must not be empty"}
	}

	tracker, err := s.tracker(ctx, token)
	if err != nil {
		return "", err
	}

	issueKey, err := tracker.CreateIssue(ctx, draft, s.catalog.FieldID())
	if err != nil {
		return "", err
	}

	for _, att := range draft.Attachments {
		if err := tracker.UploadAttachment(ctx, issueKey, att); err != nil {
			logging.Error("attachment upload failed", "issue", issueKey, "filename", att.Filename, "error", err)
			return issueKey, &models.PartialSubmissionError{IssueKey: issueKey, Stage: "attachment", Err: err}
		}
	}

	for _, line := range draft.Subtasks {
		summary := strings.TrimSpace(line)
		if summary == "" {
			continue
		}
		if err := tracker.CreateSubtask(ctx, issueKey, summary); err != nil {
			logging.Error("sub-task creation failed", "issue", issueKey, "error", err)
			return issueKey, &models.PartialSubmissionError{IssueKey: issueKey, Stage: "sub-task", Err: err}
		}
	}

	return issueKey, nil
}

// GetFormOptions fetches the dynamic priority and category lists and
// refreshes the category field descriptor. Both upstream fetches must
// succeed; a failure leaves the previously stored descriptor untouched.
func (s *Service) GetFormOptions(ctx context.Context, token string) (models.FormOptions, error) {
	tracker, err := s.tracker(ctx, token)
	if err != nil {
		return models.FormOptions{}, err
	}

	priorities, err := tracker.GetPriorities(ctx)
	if err != nil {
		return models.FormOptions{}, err
	}
	if !slices.Contains(priorities, "Lowest") {
		priorities = append(priorities, "Lowest")
	}

	field, found, err := tracker.FindCategoryField(ctx)
	if err != nil {
		return models.FormOptions{}, err
	}
	if !found {
		s.catalog.Clear()
		return models.FormOptions{Priorities: priorities, Categories: []string{}}, nil
	}

	categories := field.AllowedValues
	if len(categories) == 0 {
		categories = defaultCategories()
	}
	s.catalog.Store(field.FieldID, categories)
	logging.Debug("category field discovered", "field_id", field.FieldID, "values", len(categories))

	return models.FormOptions{Priorities: priorities, Categories: categories}, nil
}

// SearchBugs finds recent issues whose summary contains the query.
func (s *Service) SearchBugs(ctx context.Context, token, query string) ([]models.IssueSummary, error) {
	tracker, err := s.tracker(ctx, token)
	if err != nil {
		return nil, err
	}
	return tracker.SearchIssues(ctx, query)
}

// GetBug fetches one issue with its sub-task lines.
func (s *Service) GetBug(ctx context.Context, token, issueKey string) (models.IssueDetails, error) {
	tracker, err := s.tracker(ctx, token)
	if err != nil {
		return models.IssueDetails{}, err
	}
	return tracker.GetIssue(ctx, issueKey)
}

// AddSubtasks creates sub-tasks under an existing issue, in order. Blank
// lines are skipped.
func (s *Service) AddSubtasks(ctx context.Context, token, issueKey string, summaries []string) error {
	tracker, err := s.tracker(ctx, token)
	if err != nil {
		return err
	}
	for _, line := range summaries {
		summary := strings.TrimSpace(line)
		if summary == "" {
			continue
		}
		if err := tracker.CreateSubtask(ctx, issueKey, summary); err != nil {
			return err
		}
	}
	return nil
}

// SearchUsers finds assignee candidates. A blank query short-circuits to an
// empty result without touching the tracker.
func (s *Service) SearchUsers(ctx context.Context, token, query string) ([]models.UserRecord, error) {
	if strings.TrimSpace(query) == "" {
		return []models.UserRecord{}, nil
	}
	tracker, err := s.tracker(ctx, token)
	if err != nil {
		return nil, err
	}
	return tracker.SearchUsers(ctx, query)
}

// GetComponents lists the project's component names.
func (s *Service) GetComponents(ctx context.Context, token string) ([]string, error) {
	tracker, err := s.tracker(ctx, token)
	if err != nil {
		return nil, err
	}
	return tracker.GetComponents(ctx)
}

// Profile returns the caller's identity, used for the notification reporter
// line.
func (s *Service) Profile(ctx context.Context, token string) (models.Profile, error) {
	return s.resolver.GetProfile(ctx, token)
}
