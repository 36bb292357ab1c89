package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

func TestReviewRequestedRoundTrip(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	payload, err := encodeReviewRequested("job-1", at)
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}
	event, err := decodeReviewRequested(payload)
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if event.JobID != "job-1" || !event.RequestedAt.Equal(at) {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDecodeReviewRequestedAcceptsBareID(t *testing.T) {
	event, err := decodeReviewRequested([]byte(" job-2\n"))
	if err != nil || event.JobID != "job-2" {
		t.Fatalf("unexpected decode: %+v, %v", event, err)
	}
	for _, bad := range []string{"", "{", `{"requested_at":"2026-01-02T03:04:05Z"}`} {
		if _, err := decodeReviewRequested([]byte(bad)); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if _, err := encodeReviewRequested(" ", time.Now()); err == nil {
		t.Fatalf("expected error for empty job id")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if class := classifyNATSError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !class.Retryable {
		t.Fatalf("expected closed connection to be retryable")
	}
	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("expected cancellation to be ignored, got %+v", class)
	}
	if class := classifyNATSError(nats.ErrBadSubject); class.Retryable || !class.RecordFailure {
		t.Fatalf("expected bad subject to be permanent, got %+v", class)
	}

	if err := wrapTemporaryIfNeeded(nats.ErrTimeout); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(errors.New("boom")); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected plain error, got %v", err)
	}
}
