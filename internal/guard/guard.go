// Package guard decides whether a question may be answered from policy text.
//
// Two checks run in a fixed order: a question containing a configured stop
// term is refused as out of scope, and a question with no insurance keyword
// is refused as off topic. Blocking always wins over the domain check.
package guard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Verdict is the outcome of checking a question.
type Verdict int

// Verdicts in evaluation order.
const (
	// Allowed questions proceed to retrieval.
	Allowed Verdict = iota

	// Blocked questions contain a stop term.
	Blocked

	// OffTopic questions mention nothing insurance related.
	OffTopic
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case Blocked:
		return "blocked"
	case OffTopic:
		return "off_topic"
	default:
		return "unknown"
	}
}

// insuranceKeywords mark a question as being about insurance.
var insuranceKeywords = []string{
	"보험", "보장", "면책", "청구", "가입", "계약", "약관", "혜택", "보험료", "납입",
	"치료", "수술", "입원", "통원", "의료", "병원", "질병", "상해", "사고", "부상",
	"펫", "반려동물", "개", "고양이", "동물", "애완", "의료비", "치료비", "수술비",
	"보험금", "급여", "지급", "배상", "손해", "보상", "특약", "담보",
}

// invisible characters removed before matching.
var invisible = strings.NewReplacer(
	"\ufeff", "",
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
)

// Guard checks questions against insurance keywords and stop terms.
// A Guard is immutable after construction and safe for concurrent use.
type Guard struct {
	keywords  []string
	stopTerms []string
}

// New creates a guard with the default insurance keywords and the given stop terms.
func New(stopTerms []string) *Guard {
	g := &Guard{keywords: insuranceKeywords}
	seen := make(map[string]bool)
	for _, t := range stopTerms {
		t = normalise(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		g.stopTerms = append(g.stopTerms, t)
	}
	return g
}

// StopTerms returns the normalised stop terms.
func (g *Guard) StopTerms() []string {
	return g.stopTerms
}

// Check runs the blocked check, then the domain check.
func (g *Guard) Check(question string) Verdict {
	if g.IsBlocked(question) {
		return Blocked
	}
	if !g.IsInDomain(question) {
		return OffTopic
	}
	return Allowed
}

// IsInDomain reports whether the question mentions any insurance keyword.
func (g *Guard) IsInDomain(question string) bool {
	q := normalise(question)
	for _, k := range g.keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

// IsBlocked reports whether the question contains a stop term, either as a
// raw substring or as a whole token once punctuation is replaced by spaces.
func (g *Guard) IsBlocked(question string) bool {
	if len(g.stopTerms) == 0 {
		return false
	}

	q := normalise(question)
	padded := " " + tokenForm(q) + " "
	for _, term := range g.stopTerms {
		if strings.Contains(q, term) {
			return true
		}
		if strings.Contains(padded, " "+tokenForm(term)+" ") {
			return true
		}
	}
	return false
}

// normalise applies NFC, strips invisible characters, trims and lowercases.
func normalise(s string) string {
	s = norm.NFC.String(s)
	s = invisible.Replace(s)
	return strings.ToLower(strings.TrimSpace(s))
}

// tokenForm replaces everything but letters, digits and underscores with
// spaces and collapses runs of spaces.
func tokenForm(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// LoadStopTerms reads one stop term per line. Blank lines and lines starting
// with '#' are skipped.
func LoadStopTerms(r io.Reader) ([]string, error) {
	var terms []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := normalise(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stop terms: %w", err)
	}
	return terms, nil
}

// LoadStopTermsFile reads stop terms from path. An empty path yields no terms.
func LoadStopTermsFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stop terms: %w", err)
	}
	defer f.Close()
	return LoadStopTerms(f)
}
