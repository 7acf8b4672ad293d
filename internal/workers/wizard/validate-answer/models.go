package validateanswer

import (
	"card-program-wizard/internal/wizard/assistant"
	"card-program-wizard/internal/wizard/extract"
)

// Input is read from the process variables. When currentQuestion is absent
// the question is looked up in the catalog by field, then by step.
type Input struct {
	Provider            string                 `json:"provider,omitempty"`
	Action              string                 `json:"action,omitempty"`
	Field               string                 `json:"field,omitempty"`
	Step                int                    `json:"step,omitempty"`
	CurrentQuestion     *extract.Question      `json:"currentQuestion,omitempty"`
	UserInput           string                 `json:"userInput"`
	ConversationHistory []assistant.Message    `json:"conversationHistory,omitempty"`
	CollectedData       map[string]interface{} `json:"collectedData,omitempty"`
}

type Output struct {
	Validated             bool                   `json:"validated"`
	ExtractedValue        interface{}            `json:"extractedValue"`
	Confidence            float64                `json:"confidence"`
	AIResponse            string                 `json:"aiResponse"`
	RequiresClarification bool                   `json:"requiresClarification"`
	Suggestions           []string               `json:"suggestions,omitempty"`
	ProviderUsed          string                 `json:"providerUsed,omitempty"`
	Fallback              bool                   `json:"fallback"`
	IsCommand             bool                   `json:"isCommand"`
	Command               string                 `json:"command,omitempty"`
	CommandAction         string                 `json:"commandAction,omitempty"`
	CollectedData         map[string]interface{} `json:"collectedData"`
}
