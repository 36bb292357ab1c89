package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/export/xlsx"
)

type reviewRequest struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Genre      string `json:"genre"`
}

type askRequest struct {
	Content  string `json:"content"`
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

func (rt *Router) reviewText(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeMessage(w, http.StatusBadRequest, "content is required")
		return
	}

	ctx, cancel := rt.reviewContext(r.Context())
	defer cancel()

	review, err := rt.deps.Reviewer.ReviewManuscript(ctx, domain.Document{
		ID:      strings.TrimSpace(req.DocumentID),
		Title:   strings.TrimSpace(req.Title),
		Content: req.Content,
	}, req.Genre)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (rt *Router) reviewPDF(w http.ResponseWriter, r *http.Request) {
	if rt.deps.PDFText == nil {
		writeMessage(w, http.StatusNotImplemented, "pdf reviews are not enabled")
		return
	}
	file, header, err := r.FormFile("pdfFile")
	if isBodyTooLarge(err) {
		writeError(w, r, err)
		return
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "multipart field 'pdfFile' is required")
		return
	}
	defer file.Close()

	if format, ok := domain.DetectFormat(header.Filename, header.Header.Get("Content-Type")); !ok || format != domain.FormatPDF {
		writeMessage(w, http.StatusBadRequest, "pdfFile must be a PDF document")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", err))
		return
	}
	text, err := rt.deps.PDFText(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(text) == "" {
		writeMessage(w, http.StatusBadRequest, "no text could be extracted from the PDF")
		return
	}

	ctx, cancel := rt.reviewContext(r.Context())
	defer cancel()

	review, err := rt.deps.Reviewer.ReviewManuscript(ctx, domain.Document{
		Title:   titleFromFilename(header.Filename),
		Content: text,
	}, r.URL.Query().Get("genre"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (rt *Router) submitJob(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if isBodyTooLarge(err) {
		writeError(w, r, err)
		return
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	job, err := rt.deps.Submitter.Submit(
		r.Context(),
		header.Filename,
		header.Header.Get("Content-Type"),
		r.FormValue("genre"),
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := rt.deps.Jobs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) exportIssues(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := rt.deps.Jobs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job.Status != domain.JobStatusCompleted || job.Review == nil {
		writeMessage(w, http.StatusConflict, fmt.Sprintf("review job is %s", job.Status))
		return
	}

	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-issues.xlsx"`, id))
	if err := xlsx.WriteIssues(w, job.Review); err != nil {
		writeError(w, r, err)
	}
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" || strings.TrimSpace(req.Question) == "" {
		writeMessage(w, http.StatusBadRequest, "content and question are required")
		return
	}
	if req.TopK < 0 {
		writeMessage(w, http.StatusBadRequest, "top_k must not be negative")
		return
	}

	ctx, cancel := rt.reviewContext(r.Context())
	defer cancel()

	answer, err := rt.deps.Questioner.AnswerFromDocument(ctx, domain.Document{Content: req.Content}, req.Question, req.TopK)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordAskSources(serviceName, "/v1/manuscripts/ask", len(answer.Sources))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) listUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": rt.deps.Usage.Snapshot()})
}

func (rt *Router) getUsage(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")
	usage, ok := rt.deps.Usage.ForModel(model)
	if !ok {
		writeError(w, r, domain.WrapError(domain.ErrNotFound, "get usage", errors.New("no usage recorded for "+model)))
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (rt *Router) resetUsage(w http.ResponseWriter, _ *http.Request) {
	rt.deps.Usage.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) reviewContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if rt.reviewTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, rt.reviewTimeout)
}

func titleFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}
