package chunking

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

const (
	DefaultMaxChunkSize = 2000
	DefaultOverlap      = 200

	paragraphSeparator = "\n\n"
)

// Segmenter splits manuscript text into chapter-aware, paragraph-respecting
// chunks. Sizes are measured in characters (runes).
type Segmenter struct {
	MaxChunkSize int
	Overlap      int
}

func NewSegmenter(maxChunkSize, overlap int) *Segmenter {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}
	return &Segmenter{
		MaxChunkSize: maxChunkSize,
		Overlap:      overlap,
	}
}

// Split returns only the chunk bodies, using the segmenter's configured size.
func (s *Segmenter) Split(text string) []string {
	chunks, err := s.Chunk(text, "", 0)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Content)
	}
	return out
}

// Chunk segments content. maxChunkSize == 0 selects the configured size.
func (s *Segmenter) Chunk(content, documentID string, maxChunkSize int) ([]domain.DocumentChunk, error) {
	if maxChunkSize < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", fmt.Errorf("max chunk size must be positive, got %d", maxChunkSize))
	}
	if maxChunkSize == 0 {
		maxChunkSize = s.MaxChunkSize
	}
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	overlap := s.Overlap
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}
	if strings.TrimSpace(content) == "" {
		return []domain.DocumentChunk{}, nil
	}

	b := &chunkBuilder{
		documentID: documentID,
		content:    content,
		maxSize:    maxChunkSize,
		overlap:    overlap,
	}
	for _, sec := range detectChapters(content) {
		b.addChapter(sec)
	}
	return b.chunks, nil
}

type span struct {
	start int
	end   int
}

type chapter struct {
	number     int
	title      string
	paragraphs []span
}

// detectChapters walks the content line by line. A marker line opens a new
// chapter and belongs to it; anything before the first marker is chapter 0.
func detectChapters(content string) []chapter {
	chapters := []chapter{{number: 0}}
	current := &chapters[0]
	para := span{start: -1}

	flush := func() {
		if para.start >= 0 {
			current.paragraphs = append(current.paragraphs, para)
			para = span{start: -1}
		}
	}

	offset := 0
	for offset < len(content) {
		lineEnd := strings.IndexByte(content[offset:], '\n')
		next := len(content)
		if lineEnd >= 0 {
			lineEnd += offset
			next = lineEnd + 1
		} else {
			lineEnd = len(content)
		}
		line := strings.TrimRight(content[offset:lineEnd], "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()
		case isChapterMarker(trimmed):
			flush()
			chapters = append(chapters, chapter{number: len(chapters), title: trimmed})
			current = &chapters[len(chapters)-1]
			fallthrough
		default:
			lead := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
			tail := len(strings.TrimRightFunc(line, unicode.IsSpace))
			if para.start < 0 {
				para.start = offset + lead
			}
			para.end = offset + tail
		}
		offset = next
	}
	flush()
	return chapters
}

func isChapterMarker(line string) bool {
	lower := strings.ToLower(line)
	if strings.HasPrefix(lower, "chapter ") || strings.HasPrefix(lower, "part ") {
		return true
	}
	n := utf8.RuneCountInString(line)
	if n >= 50 || n <= 5 {
		return false
	}
	for _, r := range line {
		if !unicode.IsUpper(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

type chunkBuilder struct {
	documentID string
	content    string
	maxSize    int
	overlap    int
	chunks     []domain.DocumentChunk
}

func (b *chunkBuilder) addChapter(ch chapter) {
	if len(ch.paragraphs) == 0 {
		return
	}
	whole := span{start: ch.paragraphs[0].start, end: ch.paragraphs[len(ch.paragraphs)-1].end}
	if runeLen(b.content[whole.start:whole.end]) <= b.maxSize {
		b.emit(ch, b.content[whole.start:whole.end], whole, 0)
		return
	}

	var (
		buf        strings.Builder
		own        = span{start: -1}
		overlapLen int
	)
	for _, p := range ch.paragraphs {
		text := b.content[p.start:p.end]
		if own.start >= 0 && runeLen(buf.String())+runeLen(paragraphSeparator)+runeLen(text) > b.maxSize {
			closed := buf.String()
			b.emit(ch, closed, own, overlapLen)

			buf.Reset()
			own = span{start: -1}
			overlapLen = 0
			if tail := overlapTail(closed, b.overlap); tail != "" &&
				runeLen(tail)+runeLen(paragraphSeparator)+runeLen(text) <= b.maxSize {
				buf.WriteString(tail)
				buf.WriteString(paragraphSeparator)
				overlapLen = len(tail) + len(paragraphSeparator)
			}
		}
		if own.start >= 0 {
			buf.WriteString(paragraphSeparator)
		} else {
			own.start = p.start
		}
		buf.WriteString(text)
		own.end = p.end
	}
	if own.start >= 0 {
		b.emit(ch, buf.String(), own, overlapLen)
	}
}

func (b *chunkBuilder) emit(ch chapter, text string, own span, overlapLen int) {
	index := len(b.chunks)
	metadata := map[string]string{
		"overlap_chars": strconv.Itoa(overlapLen),
	}
	if ch.title != "" {
		metadata["chapter_title"] = ch.title
	}
	b.chunks = append(b.chunks, domain.DocumentChunk{
		ID:            chunkID(b.documentID, index),
		DocumentID:    b.documentID,
		Content:       text,
		ChapterNumber: ch.number,
		ChunkIndex:    index,
		StartPosition: own.start,
		EndPosition:   own.end,
		Metadata:      metadata,
	})
}

// overlapTail takes the last n characters of text. When that cuts into the
// text, the leading sentence fragment is dropped so the next chunk does not
// open mid-sentence; short text is kept whole.
func overlapTail(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return strings.TrimSpace(text)
	}
	window := string(runes[len(runes)-n:])
	if cut := strings.IndexAny(window, ".!?"); cut >= 0 && cut < len(window)-1 {
		window = window[cut+1:]
	} else if sp := strings.IndexFunc(window, unicode.IsSpace); sp >= 0 {
		// no sentence boundary; at least avoid opening mid-word
		window = window[sp:]
	}
	return strings.TrimSpace(window)
}

func chunkID(documentID string, index int) string {
	if documentID == "" {
		return fmt.Sprintf("chunk-%d", index)
	}
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
