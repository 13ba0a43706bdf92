// Package policy cleans and filters pet-insurance policy text.
package policy

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// MinTextLength is the minimum passage length in characters.
const MinTextLength = 10

// relevanceKeywords mark a passage as related to insurance, treatment or pets.
var relevanceKeywords = []string{
	"보험", "보장", "약관", "계약", "가입", "청구", "지급", "보상",
	"치료", "진료", "의료", "병원", "수술", "입원", "통원",
	"질병", "상해", "사고", "부상", "예방", "건강",
	"반려동물", "펫", "애완동물", "강아지", "고양이", "동물",
}

// amountMarkers accompany a digit in monetary or percentage amounts.
var amountMarkers = []string{"원", "만", "%"}

var (
	coverageKeywords  = []string{"보장", "지급", "보상", "급여"}
	exclusionKeywords = []string{"면책", "제외", "보장하지", "지급하지"}
	procedureKeywords = []string{"신청", "접수", "제출", "청구"}
)

// Clean collapses every run of whitespace, including CR and LF, to a single
// space and trims the ends.
func Clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// IsRelevant reports whether a cleaned passage should be indexed.
// Passages shorter than MinTextLength characters are rejected. Otherwise a
// passage is kept if it mentions a domain keyword, or if it contains a digit
// together with an amount marker.
func IsRelevant(text string) bool {
	if utf8.RuneCountInString(text) < MinTextLength {
		return false
	}

	lower := strings.ToLower(text)
	if containsAny(lower, relevanceKeywords) {
		return true
	}

	return strings.IndexFunc(text, unicode.IsDigit) >= 0 && containsAny(text, amountMarkers)
}

// ExtractTags flags coverage, exclusion and procedure clauses.
// The flags are independent; a passage may carry any combination.
func ExtractTags(text string) domain.StructuralTags {
	lower := strings.ToLower(text)
	return domain.StructuralTags{
		Coverage:  containsAny(lower, coverageKeywords),
		Exclusion: containsAny(lower, exclusionKeywords),
		Procedure: containsAny(lower, procedureKeywords),
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
