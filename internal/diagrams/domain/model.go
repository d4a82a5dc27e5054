package domain

import (
	"errors"
	"time"
)

// InitialVersionLabel is the label given to version 1 of every diagram.
const InitialVersionLabel = "Initial version"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Diagram is owned by exactly one user. PlantUMLCode and CurrentVersionNumber
// always mirror one existing DiagramVersion.
type Diagram struct {
	ID                   string    `json:"id"`
	OwnerID              string    `json:"owner_id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	PlantUMLCode         string    `json:"plantuml_code"`
	CurrentVersionNumber int       `json:"current_version_number"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DiagramVersion is immutable once created. Version numbers are 1-based and
// never reused within a diagram.
type DiagramVersion struct {
	ID            string    `json:"id"`
	DiagramID     string    `json:"diagram_id"`
	VersionNumber int       `json:"version_number"`
	PlantUMLCode  string    `json:"plantuml_code"`
	Label         string    `json:"label,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreateDiagramInput struct {
	OwnerID     string
	Title       string
	Description string
	Code        string
}

type CreateVersionInput struct {
	Code  string
	Label string
	Notes string
}
