package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type reviewRequested struct {
	JobID       string    `json:"job_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func encodeReviewRequested(jobID string, at time.Time) ([]byte, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, errors.New("nats publish: empty job id")
	}
	payload, err := json.Marshal(reviewRequested{JobID: jobID, RequestedAt: at})
	if err != nil {
		return nil, fmt.Errorf("marshal review request: %w", err)
	}
	return payload, nil
}

// decodeReviewRequested also accepts a bare job ID payload.
func decodeReviewRequested(data []byte) (reviewRequested, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return reviewRequested{}, errors.New("empty review request")
	}
	if !strings.HasPrefix(raw, "{") {
		return reviewRequested{JobID: raw}, nil
	}

	var event reviewRequested
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return reviewRequested{}, fmt.Errorf("decode review request: %w", err)
	}
	if strings.TrimSpace(event.JobID) == "" {
		return reviewRequested{}, errors.New("review request without job_id")
	}
	return event, nil
}
