package api

import (
	"time"

	"github.com/google/uuid"
)

type AnomalyModel struct {
	Guid           string
	JobGuid        string
	Algorithm      string
	TrainingStatus string

	MeanNormal       *string    `json:"MeanNormal,omitempty"`
	StdNormal        *string    `json:"StdNormal,omitempty"`
	ModelArtifactRef string     `json:"ModelArtifactRef,omitempty"`
	CompletionTime   *time.Time `json:"CompletionTime,omitempty"`
}

type TrainingError struct {
	Id        uuid.UUID
	JobGuid   string
	Algorithm string `json:"Algorithm,omitempty"`
	Kind      string
	Error     string
	Details   map[string]any `json:"Details,omitempty"`
	Timestamp time.Time
}

type ModelStatus struct {
	Loaded    bool
	Algorithm string `json:"Algorithm,omitempty"`
	Artifact  string `json:"Artifact,omitempty"`
}

type ListModelsParams struct {
	Algorithm string `schema:"algorithm"`
	Status    string `schema:"status"`
}
