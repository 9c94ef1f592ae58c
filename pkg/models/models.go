// Package models defines data structures shared across the application.
package models

// IssueDraft is the caller-supplied, not-yet-submitted ticket content. It
// exists only for the duration of a single submission attempt.
type IssueDraft struct {
	// Summary is the issue title. Required.
	Summary string

	// Description is the issue body. Required.
	Description string

	// Priority is the priority name (e.g. "High"). Optional.
	Priority string

	// Category is the bug category value. Only applied once the category
	// field id has been discovered.
	Category string

	// Assignee is the Atlassian account id of the assignee. Optional.
	Assignee string

	// Components is a comma-separated list of component names.
	Components string

	// Attachments are uploaded after issue creation, in order.
	Attachments []Attachment

	// Subtasks holds one sub-task summary per entry. Blank entries are
	// skipped.
	Subtasks []string
}

// Attachment is a single file to upload to a created issue.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Profile identifies the authenticated caller.
type Profile struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// UserRecord is a single assignee-search result.
type UserRecord struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// FormOptions holds the dynamic dropdown values for the bug form.
type FormOptions struct {
	Priorities []string `json:"priorities"`
	Categories []string `json:"categories"`
}

// CategoryField describes the tracker's custom bug-category field,
// discovered at runtime rather than hardcoded.
type CategoryField struct {
	// FieldID is the tracker's internal field id (e.g. "customfield_10045").
	FieldID string

	// AllowedValues is the restricted value set, if the field defines one.
	AllowedValues []string
}

// IssueSummary is a single issue-search result.
type IssueSummary struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
}

// IssueDetails is the expanded view of one issue.
type IssueDetails struct {
	Key         string   `json:"key"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Subtasks    []string `json:"subtasks"`
}
