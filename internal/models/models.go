// package models defines the data model for moody playlist runs
package models

import (
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// User is the authenticated music service account.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Playlist represents a playlist on the music service.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}

// Track represents a track search hit.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration,omitempty"` // seconds
	URI      string `json:"uri,omitempty"`
}

// Snippet is one web search hit used as research context.
type Snippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Role of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat completion message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResolvedTrack is a query that produced a track. ID is what gets added to the playlist.
type ResolvedTrack struct {
	ID     string `json:"id"`
	Query  string `json:"query"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}
