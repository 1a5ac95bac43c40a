package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosai/backend/internal/domain/entities"
	"github.com/diagnosai/backend/internal/domain/providers"
	"github.com/diagnosai/backend/internal/infrastructure/observability"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

// DiagnosisService relays user symptoms to a text generator
type DiagnosisService struct {
	generator providers.TextGenerator
	metrics   *observability.Metrics
}

// NewDiagnosisService creates a new diagnosis service. generator may be nil when no model is configured.
func NewDiagnosisService(generator providers.TextGenerator, metrics *observability.Metrics) *DiagnosisService {
	return &DiagnosisService{
		generator: generator,
		metrics:   metrics,
	}
}

// Diagnose sends the composed prompt to the model and returns its text verbatim.
func (s *DiagnosisService) Diagnose(ctx context.Context, input *entities.DiagnosisInput) (string, error) {
	if input == nil || strings.TrimSpace(input.Symptoms) == "" {
		return "", apperrors.NewValidationError("symptoms are required", apperrors.FieldError{Field: "symptoms", Rule: "required"})
	}
	if s.generator == nil {
		return "", apperrors.NewInternalError("diagnosis model is not configured", fmt.Errorf("nil text generator"))
	}

	ctx, span := observability.StartSpan(ctx, "DiagnosisService.Diagnose")
	defer span.End()

	start := time.Now()
	text, err := s.generator.GenerateText(ctx, BuildDiagnosisPrompt(input))
	observability.RecordUpstreamCall(ctx, s.metrics, "gemini", time.Since(start), err)
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("diagnosis generation failed")
		return "", apperrors.NewExternalError(err.Error(), err)
	}

	return text, nil
}

// BuildDiagnosisPrompt concatenates symptoms, then images, then health records.
// Optional parts are appended as compact JSON on their own line only when they
// carry a value: null, "", [] and {} are treated as not provided.
func BuildDiagnosisPrompt(input *entities.DiagnosisInput) string {
	var sb strings.Builder
	sb.WriteString(input.Symptoms)

	if images, ok := compactJSON(input.Images); ok {
		sb.WriteString("\nImages: ")
		sb.WriteString(images)
	}
	if records, ok := compactJSON(input.HealthRecords); ok {
		sb.WriteString("\nHealth records: ")
		sb.WriteString(records)
	}

	return sb.String()
}

func compactJSON(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed), true
	}
	switch compacted := buf.String(); compacted {
	case "null", `""`, "[]", "{}":
		return "", false
	default:
		return compacted, true
	}
}
