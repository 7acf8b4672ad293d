package extract

import (
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ==========================
// Test Helper Functions
// ==========================

func numberQuestion() Question {
	return Question{Field: "estimated_cards", Type: TypeNumber}
}

func programTypeQuestion() Question {
	return Question{
		Field:   "program_type",
		Type:    TypeSelect,
		Options: []string{"corporate", "fleet", "meal", "travel", "gift", "transport"},
	}
}

func schemeQuestion() Question {
	return Question{Field: "card_scheme", Type: TypeSelect, Options: []string{"Visa", "Mastercard"}}
}

func currencyQuestion() Question {
	return Question{Field: "currency", Type: TypeSelect, Options: []string{"EUR", "USD", "GBP", "SEK"}}
}

func formFactorQuestion() Question {
	return Question{Field: "form_factor", Type: TypeMultiSelect, Options: []string{"physical", "virtual", "tokenized"}}
}

type fixedPicker int

func (p fixedPicker) Pick(string, int) int { return int(p) }

// ==========================
// Number Extraction Tests
// ==========================

func TestExtract_Number(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		expected   int
		confidence float64
	}{
		{"arithmetic product", "200*30", 6000, 0.95},
		{"arithmetic with spaces and parentheses", "(100 + 50) / 2", 75, 0.95},
		{"arithmetic rounds to nearest", "10 / 4", 3, 0.95},
		{"plain digits", "500", 500, 0.95},
		{"thousands separator", "1,000", 1000, 0.95},
		{"written compound", "two hundred", 200, 0.95},
		{"written thousand", "one thousand", 1000, 0.95},
		{"digit and scale", "5 thousand", 5000, 0.95},
		{"written unit", "fifty", 50, 0.95},
		{"digits in sentence", "about 250 cards", 250, 0.9},
		{"separated digits in sentence", "around 1,500 employees", 1500, 0.9},
		{"skips digits glued to letters", "plan b2 with 40 people", 40, 0.9},
		{"digits win over a lone number word", "we need 50 cards for one team", 50, 0.9},
		{"lone number word without digits", "just one for now", 1, 0.95},
		{"largest exact integer", "9007199254740992", 9007199254740992, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(numberQuestion(), tt.input)
			require.True(t, res.Validated, res.AIResponse)
			assert.Equal(t, tt.expected, res.ExtractedValue)
			assert.Equal(t, tt.confidence, res.Confidence)
			assert.False(t, res.RequiresClarification)
		})
	}
}

func TestExtract_NumberFailures(t *testing.T) {
	for _, input := range []string{"lots", "abc123", "", "."} {
		t.Run(strconv.Quote(input), func(t *testing.T) {
			res := Extract(numberQuestion(), input)
			assert.False(t, res.Validated)
			assert.Nil(t, res.ExtractedValue)
			assert.True(t, res.RequiresClarification)
			assert.Contains(t, numberFailureTemplates, res.AIResponse)
		})
	}
}

func TestExtract_DigitStringsParseAsIntegers(t *testing.T) {
	for _, d := range []string{"0", "7", "42", "100", "99999", "007"} {
		want, err := strconv.Atoi(d)
		require.NoError(t, err)

		res := Extract(numberQuestion(), d)
		assert.True(t, res.Validated, d)
		assert.Equal(t, want, res.ExtractedValue, d)
	}
}

func TestExtract_DigitStringsBeyondExactRangeAreRejected(t *testing.T) {
	res := Extract(numberQuestion(), "12345678901234567890")
	assert.False(t, res.Validated)
	assert.True(t, res.RequiresClarification)
}

func TestEvaluateArithmetic_RejectsNonFinite(t *testing.T) {
	_, ok := evaluateArithmetic("1/0")
	assert.False(t, ok)

	_, ok = evaluateArithmetic("(2+")
	assert.False(t, ok)

	_, ok = evaluateArithmetic("1.2.3")
	assert.False(t, ok)

	v, ok := evaluateArithmetic("-5 + 2")
	assert.True(t, ok)
	assert.Equal(t, -3, v)
}

// ==========================
// Select Extraction Tests
// ==========================

func TestExtract_Select(t *testing.T) {
	tests := []struct {
		name       string
		question   Question
		input      string
		expected   string
		confidence float64
	}{
		{"exact case-insensitive", programTypeQuestion(), "Corporate", "corporate", 1.0},
		{"partial prefix", schemeQuestion(), "master", "Mastercard", 0.9},
		{"option named in sentence", programTypeQuestion(), "we want a travel program", "travel", 0.9},
		{"typo", schemeQuestion(), "viza", "Visa", 0.85},
		{"typo in longer option", programTypeQuestion(), "corprate", "corporate", 0.85},
		{"keyword abbreviation", schemeQuestion(), "mc", "Mastercard", 0.9},
		{"keyword synonym", programTypeQuestion(), "fuel cards for our trucks", "fleet", 0.9},
		{"keyword short form", programTypeQuestion(), "corp", "corporate", 0.9},
		{"location to currency", currencyQuestion(), "we're based in Sweden", "SEK", 0.9},
		{"city to currency", currencyQuestion(), "Our HQ is in London", "GBP", 0.9},
		{"currency keyword", currencyQuestion(), "euros", "EUR", 0.9},
		{"currency exact", currencyQuestion(), "usd", "USD", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.question, tt.input)
			require.True(t, res.Validated, res.AIResponse)
			assert.Equal(t, tt.expected, res.ExtractedValue)
			assert.Equal(t, tt.confidence, res.Confidence)
			assert.True(t, tt.question.HasOption(tt.expected))
		})
	}
}

func TestExtract_SelectExactMatchForEveryOption(t *testing.T) {
	for _, q := range []Question{programTypeQuestion(), schemeQuestion(), currencyQuestion()} {
		for _, opt := range q.Options {
			for _, input := range []string{opt, fmt.Sprintf("  %s ", opt)} {
				res := Extract(q, input)
				assert.True(t, res.Validated, input)
				assert.Equal(t, opt, res.ExtractedValue, input)
				assert.Equal(t, 1.0, res.Confidence, input)
			}
		}
	}
}

func TestExtract_SelectNoMatch(t *testing.T) {
	res := Extract(schemeQuestion(), "paypal")

	assert.False(t, res.Validated)
	assert.Nil(t, res.ExtractedValue)
	assert.True(t, res.RequiresClarification)
	assert.Contains(t, res.AIResponse, "Visa, Mastercard")
	assert.Equal(t, []string{"Visa", "Mastercard"}, res.Suggestions)
}

func TestExtract_ShortWordsDoNotMatchCurrencyCodes(t *testing.T) {
	for _, input := range []string{"yes", "ERU"} {
		res := Extract(currencyQuestion(), input)
		assert.False(t, res.Validated, input)
	}
}

func TestExtract_TranspositionTyposOnShortOptions(t *testing.T) {
	tests := []struct {
		question Question
		input    string
		expected string
	}{
		{schemeQuestion(), "vsia", "Visa"},
		{programTypeQuestion(), "mael", "meal"},
		{programTypeQuestion(), "gfit", "gift"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := Extract(tt.question, tt.input)
			require.True(t, res.Validated, res.AIResponse)
			assert.Equal(t, tt.expected, res.ExtractedValue)
			assert.Equal(t, 0.85, res.Confidence)
		})
	}
}

// ==========================
// Multi-select Extraction Tests
// ==========================

func TestExtract_MultiSelect(t *testing.T) {
	tests := []struct {
		name     string
		question Question
		input    string
		expected []string
	}{
		{"all", formFactorQuestion(), "all", []string{"physical", "virtual", "tokenized"}},
		{"everything", formFactorQuestion(), "Everything please", []string{"physical", "virtual", "tokenized"}},
		{"all of them", formFactorQuestion(), "all of them", []string{"physical", "virtual", "tokenized"}},
		{"comma separated", formFactorQuestion(), "physical, virtual", []string{"physical", "virtual"}},
		{"semicolon and keyword", formFactorQuestion(), "virtual; apple pay", []string{"virtual", "tokenized"}},
		{"keywords joined by and", formFactorQuestion(), "plastic and mobile", []string{"physical", "tokenized"}},
		{"allow is not all", formFactorQuestion(), "allow virtual only", []string{"virtual"}},
		{"duplicates removed", formFactorQuestion(), "virtual, digital, online", []string{"virtual"}},
		{
			"both with two options",
			Question{Field: "form_factor", Type: TypeMultiSelectAlt, Options: []string{"physical", "virtual"}},
			"both",
			[]string{"physical", "virtual"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.question, tt.input)
			require.True(t, res.Validated, res.AIResponse)

			values, ok := res.ExtractedValue.([]string)
			require.True(t, ok)
			assert.ElementsMatch(t, tt.expected, values)
			for _, v := range values {
				assert.True(t, tt.question.HasOption(v))
			}
		})
	}
}

func TestExtract_MultiSelectNoMatch(t *testing.T) {
	res := Extract(formFactorQuestion(), "nothing fancy")
	assert.False(t, res.Validated)
	assert.True(t, res.RequiresClarification)
	assert.Contains(t, res.AIResponse, "physical, virtual, tokenized")
}

// ==========================
// Text Extraction Tests
// ==========================

func TestExtract_Text(t *testing.T) {
	q := Question{Field: "program_name", Type: TypeText, MinLength: IntPtr(3), MaxLength: IntPtr(10)}

	short := Extract(q, "AB")
	assert.False(t, short.Validated)
	assert.Contains(t, short.AIResponse, "3")

	ok := Extract(q, "ABC")
	assert.True(t, ok.Validated)
	assert.Equal(t, "ABC", ok.ExtractedValue)
	assert.Equal(t, 1.0, ok.Confidence)

	long := Extract(q, "Acme Corporate Cards")
	assert.False(t, long.Validated)
	assert.Contains(t, long.AIResponse, "10")

	open := Extract(Question{Field: "notes", Type: TypeOpenText}, "anything goes")
	assert.True(t, open.Validated)
	assert.Equal(t, "anything goes", open.ExtractedValue)
}

func TestExtract_UnknownType(t *testing.T) {
	res := Extract(Question{Field: "x", Type: "slider"}, "42")
	assert.False(t, res.Validated)
	assert.True(t, res.RequiresClarification)
	assert.NotEmpty(t, res.AIResponse)
}

// ==========================
// Levenshtein Tests
// ==========================

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 1, Levenshtein("viza", Normalize("Visa")))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
	assert.Equal(t, 3, Levenshtein("", "abc"))
	assert.Equal(t, 3, Levenshtein("abc", ""))
	assert.Equal(t, 0, Levenshtein("same", "same"))
	assert.Equal(t, 1, Levenshtein("café", "cafe"))
}

func TestContainsPhrase(t *testing.T) {
	assert.True(t, ContainsPhrase("all of them", "all"))
	assert.False(t, ContainsPhrase("allow", "all"))
	assert.False(t, ContainsPhrase("small", "all"))
	assert.True(t, ContainsPhrase("apple pay please", "apple pay"))
	assert.True(t, ContainsPhrase("go back!", "back"))
	assert.False(t, ContainsPhrase("feedback", "back"))
	assert.False(t, ContainsPhrase("anything", ""))
}

// ==========================
// Determinism Tests
// ==========================

func TestExtract_Idempotent(t *testing.T) {
	cases := []struct {
		q     Question
		input string
	}{
		{numberQuestion(), "200*30"},
		{numberQuestion(), "no idea"},
		{schemeQuestion(), "viza"},
		{schemeQuestion(), "paypal"},
		{currencyQuestion(), "we're based in Sweden"},
		{formFactorQuestion(), "physical, virtual"},
		{formFactorQuestion(), "nothing"},
	}

	for _, c := range cases {
		first := Extract(c.q, c.input)
		second := Extract(c.q, c.input)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Extract(%q) not idempotent (-first +second):\n%s", c.input, diff)
		}
	}
}

func TestExtractor_InjectedPicker(t *testing.T) {
	e := New(WithPicker(fixedPicker(1)))
	res := e.Extract(schemeQuestion(), "paypal")
	assert.Equal(t, fmt.Sprintf(choiceFailureTemplates[1], "Visa, Mastercard"), res.AIResponse)
}

func TestRandPicker_SeededIsReproducible(t *testing.T) {
	a := New(WithPicker(NewRandPicker(42)))
	b := New(WithPicker(NewRandPicker(42)))
	for i := 0; i < 5; i++ {
		assert.Equal(t,
			a.Extract(schemeQuestion(), "paypal").AIResponse,
			b.Extract(schemeQuestion(), "paypal").AIResponse)
	}
}

func TestExtract_ConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := Extract(currencyQuestion(), "we're based in Sweden")
			assert.Equal(t, "SEK", res.ExtractedValue)
		}()
	}
	wg.Wait()
}
