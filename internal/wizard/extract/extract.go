package extract

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
)

// Picker chooses one of n message variants. Implementations must return a
// value in [0, n).
type Picker interface {
	Pick(key string, n int) int
}

// HashPicker picks by FNV-1a hash of the key, so the same input always gets
// the same wording.
type HashPicker struct{}

func (HashPicker) Pick(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// RandPicker picks from a seeded source. Safe for concurrent use.
type RandPicker struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRandPicker(seed int64) *RandPicker {
	return &RandPicker{r: rand.New(rand.NewSource(seed))}
}

func (p *RandPicker) Pick(_ string, n int) int {
	if n <= 1 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.r.Intn(n)
}

// Extractor holds the message picker. The zero value is not usable; use New.
type Extractor struct {
	picker Picker
}

type Option func(*Extractor)

func WithPicker(p Picker) Option {
	return func(e *Extractor) {
		if p != nil {
			e.picker = p
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{picker: HashPicker{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New()

// Extract interprets answer against q with the deterministic default picker.
func Extract(q Question, answer string) Result {
	return defaultExtractor.Extract(q, answer)
}

func (e *Extractor) Extract(q Question, answer string) Result {
	switch q.Type {
	case TypeNumber:
		return e.extractNumber(q, answer)
	case TypeSelect, TypeMultipleChoice:
		return e.extractChoice(q, answer)
	case TypeMultiSelect, TypeMultiSelectAlt:
		return e.extractMulti(q, answer)
	case TypeText, TypeOpenText:
		return extractText(q, answer)
	default:
		return Result{
			Validated:             false,
			Confidence:            0,
			AIResponse:            "I'm not sure how to handle that answer. Could you try again?",
			RequiresClarification: true,
		}
	}
}

func (e *Extractor) pick(key string, templates []string) string {
	return templates[e.picker.Pick(key, len(templates))]
}

var (
	numberFailureTemplates = []string{
		"I couldn't find a number in that. Could you give me a number, for example 500?",
		"Sorry, I need a number here. Something like 250 or \"two thousand\" works.",
		"Hmm, that doesn't look like a number. How many would you like?",
	}
	choiceFailureTemplates = []string{
		"I'm not sure which option you mean. Please choose one of: %s.",
		"Hmm, I didn't catch that. The options are: %s.",
		"Sorry, that doesn't match any option. Could you pick from %s?",
	}
	multiFailureTemplates = []string{
		"I couldn't match that to any option. You can pick one or more of: %s, or say \"all\".",
		"Sorry, I didn't recognise those. Choose any of %s (or \"all\").",
	}
)

func (e *Extractor) choiceFailure(q Question, input string, templates []string) Result {
	msg := fmt.Sprintf(e.pick(q.Field+"|"+input, templates), strings.Join(q.Options, ", "))
	return Result{
		Validated:             false,
		Confidence:            0,
		AIResponse:            msg,
		RequiresClarification: true,
		Suggestions:           append([]string(nil), q.Options...),
	}
}

func matched(value interface{}, confidence float64, response string) Result {
	return Result{
		Validated:      true,
		ExtractedValue: value,
		Confidence:     confidence,
		AIResponse:     response,
	}
}
