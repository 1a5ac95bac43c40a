package entities

import (
	"encoding/json"
	"time"
)

// DiagnosisInput is what the user submits for an AI assessment.
// Images and HealthRecords are opaque and forwarded as text.
type DiagnosisInput struct {
	Symptoms      string          `json:"symptoms" validate:"required"`
	Images        json.RawMessage `json:"images,omitempty"`
	HealthRecords json.RawMessage `json:"health_records,omitempty"`
}

// DiagnosisResult wraps the raw model text
type DiagnosisResult struct {
	Diagnosis string `json:"diagnosis"`
}

// ChatMessage is a free-form health question
type ChatMessage struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// ChatReply is the assistant answer to a ChatMessage
type ChatReply struct {
	Response  string    `json:"response"`
	Sources   []string  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}
