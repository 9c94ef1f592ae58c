package service

import "sync"

// CategoryCatalog owns the process-wide, lazily discovered bug-category
// field descriptor. Submissions read it while option fetches rewrite it, so
// access is guarded.
type CategoryCatalog struct {
	mu            sync.RWMutex
	fieldID       string
	allowedValues []string
}

// NewCategoryCatalog returns an empty catalog. Until the first discovery,
// FieldID is empty and category selections have no effect on submissions.
func NewCategoryCatalog() *CategoryCatalog {
	return &CategoryCatalog{}
}

// Store atomically replaces the descriptor.
func (c *CategoryCatalog) Store(fieldID string, allowedValues []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fieldID = fieldID
	c.allowedValues = append([]string(nil), allowedValues...)
}

// Clear unsets the descriptor, used when the tracker defines no category
// field at all.
func (c *CategoryCatalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fieldID = ""
	c.allowedValues = nil
}

// FieldID returns the discovered field id, or "" when unknown.
func (c *CategoryCatalog) FieldID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fieldID
}

// AllowedValues returns a copy of the discovered value set.
func (c *CategoryCatalog) AllowedValues() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.allowedValues...)
}
