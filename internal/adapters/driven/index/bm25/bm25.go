// Package bm25 provides an in-memory Okapi BM25 keyword index.
//
// Tokens are lowercase runs of letters and digits. Hangul runs additionally
// emit character bigrams, so "예방접종은" still matches "예방접종" through
// shared bigrams without a morphological analyser.
package bm25

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

// Okapi parameters.
const (
	K1 = 1.5
	B  = 0.75
)

var (
	_ driven.LexicalIndex        = (*Index)(nil)
	_ driven.LexicalIndexFactory = Factory{}
)

// Factory builds BM25 indexes.
type Factory struct{}

// NewLexicalIndex indexes chunks in order.
func (Factory) NewLexicalIndex(chunks []domain.Chunk) driven.LexicalIndex {
	return New(chunks)
}

type posting struct {
	doc  int
	freq int
}

// Index is an immutable BM25 index.
type Index struct {
	ids      []string
	lengths  []int
	avgLen   float64
	postings map[string][]posting
}

// New builds an index over chunks.
func New(chunks []domain.Chunk) *Index {
	idx := &Index{
		ids:      make([]string, len(chunks)),
		lengths:  make([]int, len(chunks)),
		postings: make(map[string][]posting),
	}

	total := 0
	for n, c := range chunks {
		idx.ids[n] = c.ID
		tokens := Tokenize(c.Content)
		idx.lengths[n] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}
		for term, f := range tf {
			idx.postings[term] = append(idx.postings[term], posting{doc: n, freq: f})
		}
	}
	if len(chunks) > 0 {
		idx.avgLen = float64(total) / float64(len(chunks))
	}
	return idx
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.ids)
}

// Search returns up to k chunks by descending score. Ties keep index order.
func (idx *Index) Search(query string, k int) []driven.LexicalHit {
	if k <= 0 || len(idx.ids) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	scores := make(map[int]float64)
	n := float64(len(idx.ids))
	for _, term := range Tokenize(query) {
		if seen[term] {
			continue
		}
		seen[term] = true

		plist := idx.postings[term]
		if len(plist) == 0 {
			continue
		}
		df := float64(len(plist))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range plist {
			tf := float64(p.freq)
			norm := 1 - B
			if idx.avgLen > 0 {
				norm += B * float64(idx.lengths[p.doc]) / idx.avgLen
			}
			scores[p.doc] += idf * tf * (K1 + 1) / (tf + K1*norm)
		}
	}

	docs := make([]int, 0, len(scores))
	for d := range scores {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if scores[docs[i]] != scores[docs[j]] {
			return scores[docs[i]] > scores[docs[j]]
		}
		return docs[i] < docs[j]
	})
	if len(docs) > k {
		docs = docs[:k]
	}

	hits := make([]driven.LexicalHit, len(docs))
	for i, d := range docs {
		hits[i] = driven.LexicalHit{ChunkID: idx.ids[d], Score: scores[d]}
	}
	return hits
}

// Tokenize splits text into index terms.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []string
	for _, w := range words {
		out = append(out, w)
		runes := []rune(w)
		if len(runes) < 3 || !isHangul(runes) {
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			out = append(out, string(runes[i:i+2]))
		}
	}
	return out
}

func isHangul(runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
