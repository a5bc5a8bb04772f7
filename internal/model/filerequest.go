package model

import "time"

// FileRequestRecord is the local index entry for a file request boxflow
// created. Box has no list endpoint, so this is the only way to enumerate
// them.
type FileRequestRecord struct {
	ID          string     `json:"id"`
	TemplateID  string     `json:"template_id"`
	FolderID    string     `json:"folder_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	URL         string     `json:"url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Expired reports whether the request has an expiry in the past.
func (r FileRequestRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}
