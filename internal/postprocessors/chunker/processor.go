// Package chunker provides a recursive, separator-aware text chunking processor.
package chunker

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultSeparators are tried in order, from paragraph breaks down to single
// characters. The empty separator splits between characters.
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", " ", ""}

// chunkNamespace seeds deterministic chunk ids.
var chunkNamespace = uuid.MustParse("b7d0f0a4-1f5e-4d8c-8a3e-2c6b9e41d7a9")

// Processor splits document content into overlapping windows.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators [][]rune
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator list. An empty separator is always
// appended so any text can be split.
func WithSeparators(seps []string) Option {
	return func(p *Processor) {
		if len(seps) == 0 {
			return
		}
		p.separators = toRunes(seps)
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: toRunes(DefaultSeparators),
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	if last := p.separators[len(p.separators)-1]; len(last) != 0 {
		p.separators = append(p.separators, nil)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window in characters.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap in characters.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Every chunk is an exact substring of the content, consecutive chunks never
// leave a gap, and the same document always yields the same chunks.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	text := []rune(doc.Content)
	spans := p.windows(p.split(text, span{0, len(text)}, 0))

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewSHA1(chunkNamespace, []byte(doc.ID+"/"+strconv.Itoa(i))).String(),
			DocumentID: doc.ID,
			Content:    string(text[s.start:s.end]),
			Position:   i,
			Start:      s.start,
			End:        s.end,
			Metadata:   doc.Metadata,
		})
	}

	return chunks, nil
}

// span is a half-open rune range.
type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

// split breaks seg into contiguous pieces no longer than the chunk size,
// using separators from index sep onwards. Separators stay attached to the
// end of the piece they terminate.
func (p *Processor) split(text []rune, seg span, sep int) []span {
	if seg.len() <= p.chunkSize {
		return []span{seg}
	}

	for ; sep < len(p.separators); sep++ {
		delim := p.separators[sep]
		if len(delim) == 0 {
			pieces := make([]span, 0, seg.len())
			for i := seg.start; i < seg.end; i++ {
				pieces = append(pieces, span{i, i + 1})
			}
			return pieces
		}

		cuts := cutPoints(text, seg, delim)
		if len(cuts) == 0 {
			continue
		}

		var pieces []span
		start := seg.start
		for _, cut := range append(cuts, seg.end) {
			if cut == start {
				continue
			}
			pieces = append(pieces, p.split(text, span{start, cut}, sep+1)...)
			start = cut
		}
		return pieces
	}

	return []span{seg}
}

// windows merges pieces greedily into windows of at most chunkSize runes.
// Each following window starts at the trailing pieces of the previous one
// that fit within the overlap, and always advances.
func (p *Processor) windows(pieces []span) []span {
	var out []span
	i := 0
	for i < len(pieces) {
		start := pieces[i].start
		j := i + 1
		for j < len(pieces) && pieces[j].end-start <= p.chunkSize {
			j++
		}
		end := pieces[j-1].end
		out = append(out, span{start, end})
		if j == len(pieces) {
			break
		}

		k := j
		for k > i+1 && end-pieces[k-1].start <= p.overlap {
			k--
		}
		for k < j && pieces[j].end-pieces[k].start > p.chunkSize {
			k++
		}
		i = k
	}
	return out
}

// cutPoints returns the rune offsets just after each occurrence of delim
// inside seg, excluding a match that ends exactly at seg.end.
func cutPoints(text []rune, seg span, delim []rune) []int {
	var cuts []int
	for i := seg.start; i+len(delim) <= seg.end; {
		if matchAt(text, i, delim) {
			i += len(delim)
			if i < seg.end {
				cuts = append(cuts, i)
			}
			continue
		}
		i++
	}
	return cuts
}

func matchAt(text []rune, at int, delim []rune) bool {
	for j, r := range delim {
		if text[at+j] != r {
			return false
		}
	}
	return true
}

func toRunes(seps []string) [][]rune {
	out := make([][]rune, len(seps))
	for i, s := range seps {
		out[i] = []rune(s)
	}
	return out
}
