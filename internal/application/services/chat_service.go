package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/diagnosai/backend/internal/domain/entities"
	"github.com/diagnosai/backend/internal/domain/providers"
	"github.com/diagnosai/backend/internal/infrastructure/observability"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

const (
	knowledgeSymptoms   = "symptoms"
	knowledgePrevention = "prevention"
	knowledgeGeneral    = "general"

	chatDisclaimer = "\n\n**Please note:** This information is for educational purposes only and should not replace professional medical advice. Consult with a healthcare provider for personalized medical guidance."
)

var (
	defaultChatSources = []string{"WHO", "CDC"}
	modelChatSources   = []string{"Gemini AI", "WHO", "CDC", "Medical Literature"}

	emojiPattern = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]`)
)

// KnowledgeEntry is one snippet of curated health guidance
type KnowledgeEntry struct {
	Category string
	Key      string
	Text     string
}

// healthKnowledgeBase is searched in order; later source overrides win.
var healthKnowledgeBase = []KnowledgeEntry{
	{knowledgeSymptoms, "flu", "Common flu symptoms include fever, chills, muscle aches, cough, congestion, runny nose, headaches, and fatigue. Symptoms typically last 3-7 days."},
	{knowledgeSymptoms, "covid", "COVID-19 symptoms may include fever, cough, shortness of breath, fatigue, muscle aches, headache, loss of taste or smell, sore throat, and congestion."},
	{knowledgeSymptoms, "dehydration", "Signs of dehydration include thirst, dry mouth, little or no urination, dark-colored urine, fatigue, dizziness, and confusion."},
	{knowledgePrevention, "covid", "Prevent COVID-19 by getting vaccinated, wearing masks in crowded areas, maintaining social distance, washing hands frequently, and avoiding large gatherings."},
	{knowledgePrevention, "flu", "Prevent flu by getting annual flu vaccination, washing hands regularly, avoiding close contact with sick people, and maintaining good health habits."},
	{knowledgeGeneral, "diet", "A healthy diet includes fruits, vegetables, whole grains, lean proteins, and limited processed foods. Aim for 5-9 servings of fruits and vegetables daily."},
	{knowledgeGeneral, "sleep", "Adults need 7-9 hours of sleep per night. Good sleep hygiene includes consistent bedtime, comfortable environment, and avoiding screens before bed."},
	{knowledgeGeneral, "doctor", "See a doctor if you have persistent symptoms, high fever, difficulty breathing, chest pain, severe headache, or any concerning health changes."},
}

// ChatService answers free-form health questions with knowledge-base context
type ChatService struct {
	generator providers.TextGenerator
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(generator providers.TextGenerator, metrics *observability.Metrics) *ChatService {
	return &ChatService{
		generator: generator,
		metrics:   metrics,
		now:       time.Now,
	}
}

// SearchKnowledgeBase returns the snippets matching a message and the sources to cite.
func SearchKnowledgeBase(message string) ([]string, []string) {
	query := strings.ToLower(message)
	sources := defaultChatSources
	var snippets []string

	for _, entry := range healthKnowledgeBase {
		if !matchesKnowledge(query, entry) {
			continue
		}
		snippets = append(snippets, entry.Text)
		switch entry.Key {
		case "diet":
			sources = []string{"WHO", "Dietary Guidelines"}
		case "sleep":
			sources = []string{"Sleep Foundation", "CDC"}
		}
	}

	return snippets, append([]string(nil), sources...)
}

func matchesKnowledge(query string, entry KnowledgeEntry) bool {
	if strings.Contains(query, entry.Key) {
		return true
	}
	switch {
	case entry.Category == knowledgeSymptoms && strings.Contains(query, "symptom"):
		return true
	case entry.Category == knowledgePrevention && strings.Contains(query, "prevent"):
		return true
	case entry.Key == "diet" && strings.Contains(query, "eat"):
		return true
	case entry.Key == "doctor" && strings.Contains(query, "see"):
		return true
	}
	return false
}

// BuildChatPrompt renders the assistant instructions, context snippets and the user question.
func BuildChatPrompt(message string, snippets []string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful AI health assistant that provides accurate medical information from trusted sources like WHO and CDC.\n\n")
	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("- Do NOT use any emojis in your response\n")
	sb.WriteString("- Format your response using markdown for better readability (use **bold**, *italic*, bullet points, etc.)\n")
	sb.WriteString("- Provide clear, concise, and professional medical information\n")
	sb.WriteString("- Always include appropriate medical disclaimers\n\n")
	sb.WriteString("Context from health database:\n")
	sb.WriteString(strings.Join(snippets, "\n"))
	sb.WriteString("\n\nUser question: ")
	sb.WriteString(message)
	sb.WriteString("\n\nPlease provide a helpful, accurate response based on the context above. ")
	sb.WriteString("If the context doesn't contain relevant information, provide general health guidance and recommend consulting healthcare professionals. ")
	sb.WriteString("Format your response in markdown without using any emojis.\n\nResponse:")
	return sb.String()
}

// FinalizeChatResponse strips emoji and appends the disclaimer unless the reply already defers to a professional.
func FinalizeChatResponse(response string) string {
	response = emojiPattern.ReplaceAllString(response, "")
	lower := strings.ToLower(response)
	if response != "" && !strings.Contains(lower, "consult") && !strings.Contains(lower, "healthcare professional") {
		response += chatDisclaimer
	}
	return response
}

// Reply answers a chat message
func (s *ChatService) Reply(ctx context.Context, message string) (*entities.ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewValidationError("message is required", apperrors.FieldError{Field: "message", Rule: "required"})
	}
	if s.generator == nil {
		return nil, apperrors.NewInternalError("chat model is not configured", fmt.Errorf("nil text generator"))
	}

	ctx, span := observability.StartSpan(ctx, "ChatService.Reply")
	defer span.End()

	snippets, sources := SearchKnowledgeBase(message)

	start := time.Now()
	text, err := s.generator.GenerateText(ctx, BuildChatPrompt(message, snippets))
	observability.RecordUpstreamCall(ctx, s.metrics, "gemini", time.Since(start), err)
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("chat generation failed")
		return nil, apperrors.NewExternalError("Failed to process your request", err)
	}

	finalSources := modelChatSources
	if len(snippets) > 0 {
		finalSources = mergeSources(sources, modelChatSources)
	}

	return &entities.ChatReply{
		Response:  FinalizeChatResponse(text),
		Sources:   append([]string(nil), finalSources...),
		Timestamp: s.now().UTC(),
	}, nil
}

func mergeSources(lists ...[]string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0)
	for _, list := range lists {
		for _, src := range list {
			if _, ok := seen[src]; ok {
				continue
			}
			seen[src] = struct{}{}
			merged = append(merged, src)
		}
	}
	return merged
}
