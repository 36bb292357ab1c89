// Package pdf extracts manuscript text from uploaded PDF files.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/extractor/plaintext"
)

const maxPDFBytes = 64 << 20

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, job *domain.ReviewJob) (string, error) {
	reader, err := e.storage.Open(ctx, job.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open manuscript: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxPDFBytes+1))
	if err != nil {
		return "", fmt.Errorf("read manuscript: %w", err)
	}
	if len(data) > maxPDFBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s exceeds %d bytes", job.Filename, maxPDFBytes))
	}
	return ExtractBytes(data)
}

// ExtractBytes returns the text of every page, pages separated by a blank
// line so the segmenter treats page breaks as paragraph breaks.
func ExtractBytes(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("missing %%PDF header"))
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("pdf reader: %w", err))
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("page %d: %w", i, err))
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return plaintext.Normalize(strings.Join(pages, "\n\n")), nil
}
