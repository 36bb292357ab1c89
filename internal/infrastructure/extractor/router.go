// Package extractor routes review jobs to the text extractor for their format.
package extractor

import (
	"context"
	"fmt"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
)

type Router struct {
	plain ports.TextExtractor
	pdf   ports.TextExtractor
}

func NewRouter(plain, pdf ports.TextExtractor) *Router {
	return &Router{plain: plain, pdf: pdf}
}

func (r *Router) Extract(ctx context.Context, job *domain.ReviewJob) (string, error) {
	format, ok := domain.DetectFormat(job.Filename, job.MimeType)
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported manuscript %s (%s)", job.Filename, job.MimeType))
	}
	switch format {
	case domain.FormatPDF:
		return r.pdf.Extract(ctx, job)
	default:
		return r.plain.Extract(ctx, job)
	}
}
