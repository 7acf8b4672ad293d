package extract

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	confidenceArithmetic = 0.95
	confidenceWritten    = 0.95
	confidenceDigits     = 0.9

	maxNumber = float64(1 << 53)
)

var (
	arithmeticPattern = regexp.MustCompile(`^[\d\s+\-*/(),.]+$`)
	digitRunPattern   = regexp.MustCompile(`\d+`)
	compoundPattern   = buildCompoundPattern()
)

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"fifteen": 15, "twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
}

var scaleWords = map[string]int{
	"hundred":  100,
	"thousand": 1000,
	"million":  1000000,
}

// buildCompoundPattern matches "<unit> <scale>" where unit is a digit run or
// a unit word, e.g. "two hundred" or "5 thousand".
func buildCompoundPattern() *regexp.Regexp {
	units := make([]string, 0, len(numberWords))
	for w := range numberWords {
		units = append(units, w)
	}
	sort.Slice(units, func(i, j int) bool {
		if len(units[i]) != len(units[j]) {
			return len(units[i]) > len(units[j])
		}
		return units[i] < units[j]
	})
	scales := make([]string, 0, len(scaleWords))
	for w := range scaleWords {
		scales = append(scales, w)
	}
	sort.Strings(scales)

	return regexp.MustCompile(fmt.Sprintf(`\b(\d+|%s)\s+(%s)s?\b`,
		strings.Join(units, "|"), strings.Join(scales, "|")))
}

func (e *Extractor) extractNumber(q Question, answer string) Result {
	trimmed := strings.TrimSpace(answer)
	lower := strings.ToLower(trimmed)

	if n, ok := evaluateArithmetic(trimmed); ok {
		if hasOperator(trimmed) {
			return matched(n, confidenceArithmetic, fmt.Sprintf("I calculated that as %s. Got it!", formatInt(n)))
		}
		return matched(n, confidenceArithmetic, fmt.Sprintf("Got it, %s.", formatInt(n)))
	}

	if n, ok := parseWrittenNumber(lower); ok {
		return matched(n, confidenceWritten, fmt.Sprintf("Got it, %s.", formatInt(n)))
	}

	if n, ok := firstStandaloneDigits(lower); ok {
		return matched(n, confidenceDigits, fmt.Sprintf("Got it, %s.", formatInt(n)))
	}

	return Result{
		Validated:             false,
		Confidence:            0,
		AIResponse:            e.pick(q.Field+"|"+lower, numberFailureTemplates),
		RequiresClarification: true,
	}
}

// evaluateArithmetic evaluates inputs made only of digits, operators,
// parentheses, dots, commas and spaces. Commas are thousands separators.
func evaluateArithmetic(input string) (int, bool) {
	if input == "" || !arithmeticPattern.MatchString(input) {
		return 0, false
	}
	p := &arithParser{src: strings.ReplaceAll(input, ",", "")}
	v, err := p.parse()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	rounded := math.Round(v)
	if math.Abs(rounded) > maxNumber {
		return 0, false
	}
	return int(rounded), true
}

func hasOperator(input string) bool {
	body := strings.TrimLeft(strings.TrimSpace(input), "+-")
	return strings.ContainsAny(body, "+-*/()")
}

func parseWrittenNumber(lower string) (int, bool) {
	clean := strings.ReplaceAll(lower, ",", "")
	if m := compoundPattern.FindStringSubmatch(clean); m != nil {
		unit, ok := numberWords[m[1]]
		if !ok {
			v, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, false
			}
			unit = v
		}
		return unit * scaleWords[m[2]], true
	}

	// A lone number word only counts when the answer has no digits of its
	// own, so "50 cards for one team" stays 50.
	if _, ok := firstStandaloneDigits(clean); ok {
		return 0, false
	}
	for _, word := range Words(clean) {
		if v, ok := numberWords[word]; ok {
			return v, true
		}
		if v, ok := scaleWords[word]; ok {
			return v, true
		}
	}
	return 0, false
}

// firstStandaloneDigits returns the first digit run that is not glued to a
// letter, so "50 cards" yields 50 while "abc123" yields nothing.
func firstStandaloneDigits(s string) (int, bool) {
	clean := strings.ReplaceAll(s, ",", "")
	for _, loc := range digitRunPattern.FindAllStringIndex(clean, -1) {
		if loc[0] > 0 {
			if r, _ := utf8.DecodeLastRuneInString(clean[:loc[0]]); unicode.IsLetter(r) {
				continue
			}
		}
		if loc[1] < len(clean) {
			if r, _ := utf8.DecodeRuneInString(clean[loc[1]:]); unicode.IsLetter(r) {
				continue
			}
		}
		n, err := strconv.Atoi(clean[loc[0]:loc[1]])
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

func formatInt(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

var errSyntax = errors.New("invalid arithmetic expression")

// arithParser is a recursive-descent evaluator for + - * / and parentheses.
type arithParser struct {
	src string
	pos int
}

func (p *arithParser) parse() (float64, error) {
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, errSyntax
	}
	return v, nil
}

func (p *arithParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return v, nil
		}
		op := p.src[p.pos]
		if op != '+' && op != '-' {
			return v, nil
		}
		p.pos++
		rhs, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

func (p *arithParser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return v, nil
		}
		op := p.src[p.pos]
		if op != '*' && op != '/' {
			return v, nil
		}
		p.pos++
		rhs, err := p.factor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			v *= rhs
		} else {
			v /= rhs
		}
	}
}

func (p *arithParser) factor() (float64, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, errSyntax
	}
	switch c := p.src[p.pos]; {
	case c == '+' || c == '-':
		p.pos++
		v, err := p.factor()
		if err != nil {
			return 0, err
		}
		if c == '-' {
			return -v, nil
		}
		return v, nil
	case c == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return 0, errSyntax
		}
		p.pos++
		return v, nil
	case c == '.' || (c >= '0' && c <= '9'):
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] == '.' || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
			p.pos++
		}
		return strconv.ParseFloat(p.src[start:p.pos], 64)
	default:
		return 0, errSyntax
	}
}

func (p *arithParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}
