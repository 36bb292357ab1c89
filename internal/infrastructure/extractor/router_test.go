package extractor

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/extractor/plaintext"
)

type namedExtractor string

func (n namedExtractor) Extract(context.Context, *domain.ReviewJob) (string, error) {
	return string(n), nil
}

type memoryStorage map[string]string

func (m memoryStorage) Save(context.Context, string, io.Reader) error { return nil }

func (m memoryStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(m[key])), nil
}

func TestRouterPicksExtractorByFormat(t *testing.T) {
	r := NewRouter(namedExtractor("plain"), namedExtractor("pdf"))

	cases := map[string]domain.ReviewJob{
		"pdf":   {Filename: "novel.pdf"},
		"plain": {Filename: "novel.bin", MimeType: "text/plain"},
	}
	for want, job := range cases {
		got, err := r.Extract(context.Background(), &job)
		if err != nil || got != want {
			t.Fatalf("Extract(%+v) = %q, %v; want %q", job, got, err, want)
		}
	}

	if _, err := r.Extract(context.Background(), &domain.ReviewJob{Filename: "novel.docx"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for docx, got %v", err)
	}
}

func TestPlaintextNormalizesLineEndings(t *testing.T) {
	storage := memoryStorage{"k": "\uFEFFChapter 1\r\nAlice meets Bob.\r\n\r\nChapter 2\rBob leaves town.\r\n"}
	text, err := plaintext.NewExtractor(storage).Extract(context.Background(), &domain.ReviewJob{StoragePath: "k"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Chapter 1\nAlice meets Bob.\n\nChapter 2\nBob leaves town." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestPlaintextRejectsBinary(t *testing.T) {
	storage := memoryStorage{"k": string([]byte{0xff, 0xfe, 0x00, 0x01})}
	_, err := plaintext.NewExtractor(storage).Extract(context.Background(), &domain.ReviewJob{StoragePath: "k", Filename: "x.txt"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
