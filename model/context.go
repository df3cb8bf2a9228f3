package model

import "time"

// Context groups file sources of one tenant. It is immutable once created.
type Context struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
