package domain

import "time"

// Asset represents a generated artifact belonging to a job. Each successful
// generation round overwrites the job's current image reference but appends a
// new asset record, so earlier rounds stay inspectable.
type Asset struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	URL        string    `json:"url"`
	StorageKey string    `json:"storage_key,omitempty"`
	Format     string    `json:"format"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Bytes      int64     `json:"bytes"`
	CreatedAt  time.Time `json:"created_at"`
}
