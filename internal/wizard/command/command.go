// Package command recognises wizard navigation phrases in free-text answers.
package command

import (
	"fmt"
	"regexp"
	"strings"

	"card-program-wizard/internal/wizard/extract"
)

// Command names.
const (
	Reset    = "reset"
	Back     = "back"
	Summary  = "summary"
	Help     = "help"
	Skip     = "skip"
	Edit     = "edit"
	Greeting = "greeting"
	Question = "question"
)

// Actions the wizard UI performs for each command.
const (
	ActionRestartWizard     = "restart_wizard"
	ActionPreviousQuestion  = "go_to_previous_question"
	ActionShowCollectedData = "show_collected_data"
	ActionExplainQuestion   = "explain_current_question"
	ActionSkipQuestion      = "skip_question"
	ActionJumpToQuestion    = "jump_to_specific_question"
	ActionAcknowledge       = "acknowledge_greeting"
	ActionAnswerQuestion    = "answer_question"
)

// Command is a recognised navigation request. It never carries an answer
// for the current field.
type Command struct {
	Name     string      `json:"command"`
	Action   string      `json:"command_action"`
	Response string      `json:"ai_response"`
	Data     interface{} `json:"data,omitempty"`
}

var (
	resetPhrases   = []string{"reset", "start over", "restart", "begin again", "start again"}
	backPhrases    = []string{"back", "go back", "previous", "previous question", "undo"}
	summaryPhrases = []string{"summary", "show progress", "what do we have", "what have we got", "review", "show me"}
	helpPhrases    = []string{"help", "explain", "what does this mean", "info", "i don't understand"}
	skipExact      = []string{"skip", "skip this", "skip it", "next", "pass"}

	greetingOpeners = []string{"hi", "hello", "hey", "hiya", "howdy", "greetings", "yo"}
	greetingFiller  = map[string]bool{
		"there": true, "how": true, "are": true, "you": true, "doing": true, "today": true,
		"all": true, "everyone": true, "friend": true, "assistant": true, "bot": true,
		"morning": true, "afternoon": true, "evening": true, "good": true, "day": true,
	}
	interrogatives = map[string]bool{
		"what": true, "what's": true, "whats": true, "why": true, "how": true, "which": true,
		"who": true, "when": true, "where": true, "can": true, "could": true, "should": true,
		"would": true, "is": true, "are": true, "do": true, "does": true, "will": true,
	}

	editPattern = regexp.MustCompile(`\bedit\s+(.+)`)
)

const helpText = "I'm here to help! You can:\n" +
	"• Answer naturally (e.g. \"about 500 cards\", \"Visa please\")\n" +
	"• Type \"back\" to return to the previous question\n" +
	"• Type \"summary\" to see what we have so far\n" +
	"• Type \"skip\" to skip an optional question\n" +
	"• Type \"edit <field>\" to change an earlier answer\n" +
	"• Type \"reset\" to start over"

// Detect checks input against the command phrase sets in priority order:
// reset, back, summary, help, skip, edit, greeting, question.
func Detect(input string, q extract.Question, collected map[string]interface{}) (*Command, bool) {
	text := extract.Normalize(input)
	if text == "" {
		return nil, false
	}
	bare := strings.Trim(text, " .!?,")

	switch {
	case containsAny(text, resetPhrases):
		return &Command{
			Name:     Reset,
			Action:   ActionRestartWizard,
			Response: "No problem! Let's start fresh. What would you like to name your card program?",
		}, true

	case containsAny(text, backPhrases):
		return &Command{
			Name:     Back,
			Action:   ActionPreviousQuestion,
			Response: "Sure, let's go back to the previous question.",
			Data:     map[string]interface{}{"step_delta": -1},
		}, true

	case containsAny(text, summaryPhrases):
		return &Command{
			Name:     Summary,
			Action:   ActionShowCollectedData,
			Response: GenerateSummary(collected),
			Data:     collected,
		}, true

	case bare == "" || containsAny(text, helpPhrases):
		response := helpText
		if q.Field != "" {
			response += "\n\n" + FieldHelp(q.Field)
		}
		return &Command{
			Name:     Help,
			Action:   ActionExplainQuestion,
			Response: response,
			Data:     map[string]interface{}{"field": q.Field},
		}, true

	case equalsAny(bare, skipExact):
		return &Command{
			Name:     Skip,
			Action:   ActionSkipQuestion,
			Response: "Okay, we'll skip this one for now.",
			Data:     map[string]interface{}{"skip": true},
		}, true
	}

	if m := editPattern.FindStringSubmatch(text); m != nil {
		field := strings.Trim(m[1], " .!?,")
		if field != "" {
			return &Command{
				Name:     Edit,
				Action:   ActionJumpToQuestion,
				Response: fmt.Sprintf("Let me take you back to the question about %s...", field),
				Data:     map[string]interface{}{"edit_field": field},
			}, true
		}
	}

	if isGreeting(bare) {
		response := "Hello! I'm here to help you set up your card program."
		if q.Question != "" {
			response += " " + q.Question
		}
		return &Command{Name: Greeting, Action: ActionAcknowledge, Response: response}, true
	}

	if isQuestion(text) {
		response := FieldHelp(q.Field)
		if q.Question != "" {
			response += "\n\n" + q.Question
		}
		return &Command{
			Name:     Question,
			Action:   ActionAnswerQuestion,
			Response: response,
			Data:     map[string]interface{}{"field": q.Field},
		}, true
	}

	return nil, false
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if extract.ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

func equalsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if text == p {
			return true
		}
	}
	return false
}

// isGreeting accepts a greeting opener followed only by small talk, so
// "hello, how are you" is a greeting and "hi, corporate please" is not.
func isGreeting(text string) bool {
	words := extract.Words(text)
	if len(words) == 0 {
		return false
	}

	rest := words
	switch {
	case len(words) >= 2 && words[0] == "good" && (words[1] == "morning" || words[1] == "afternoon" || words[1] == "evening" || words[1] == "day"):
		rest = words[2:]
	case equalsAny(words[0], greetingOpeners):
		rest = words[1:]
	default:
		return false
	}

	for _, w := range rest {
		if !greetingFiller[w] {
			return false
		}
	}
	return true
}

// isQuestion treats input as a question when it opens with an interrogative
// word, or ends with "?" and is longer than a one or two word answer such as
// "Visa?".
func isQuestion(text string) bool {
	words := extract.Words(text)
	if len(words) == 0 {
		return false
	}
	if interrogatives[words[0]] {
		return true
	}
	return strings.HasSuffix(text, "?") && len(words) > 2
}
