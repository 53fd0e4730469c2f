package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subtitlegen/internal/config"
)

const userAgent = "subtitlegen/0.1.0"

// Event is one notifiable occurrence in the job pipeline. Unlike the
// teacher's per-occasion Notify* methods, events here are a generic
// payload: the pipeline has one job-shaped lifecycle (admitted, failed,
// completed) rather than the teacher's disc/rip/encode/organize stages.
type Event struct {
	Kind    string
	JobID   string
	Message string
	Tags    []string
	Urgent  bool
}

// Service is the pluggable notification sink the scheduler posts events
// to when a job reaches a terminal stage (completed, failed, including
// admission failure, or abandoned). Quota pauses are not notified.
type Service interface {
	Notify(ctx context.Context, event Event) error
}

// New builds a notification service backed by an ntfy-compatible HTTP
// endpoint when configured; otherwise it returns a noop sink.
func New(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Notify.Endpoint)
	if !cfg.Notify.Enabled || endpoint == "" {
		return noop{}
	}
	timeout := time.Duration(cfg.Notify.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type httpService struct {
	endpoint string
	client   *http.Client
}

func (s *httpService) Notify(ctx context.Context, event Event) error {
	if s == nil || s.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(event.Message))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", fmt.Sprintf("subtitlegen - %s", event.Kind))
	tags := append([]string{"subtitlegen", event.Kind}, event.Tags...)
	req.Header.Set("Tags", strings.Join(tags, ","))
	if event.JobID != "" {
		req.Header.Set("X-Job-Id", event.JobID)
	}
	if event.Urgent {
		req.Header.Set("Priority", "high")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notify endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noop struct{}

func (noop) Notify(context.Context, Event) error { return nil }
