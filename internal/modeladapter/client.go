package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subtitlegen/internal/backoff"
	"subtitlegen/internal/faults"
	"subtitlegen/internal/langtag"
)

// Client generates cue text for one segment/language/mode via a
// generative model endpoint. One Client is constructed per job; its
// single-flight group collapses concurrent requests sharing the same
// fingerprint into one HTTP call but, unlike a persistent memo, never
// outlives the call that produced a result — a quality-gate retry that
// clears a target's results and rewinds to Uploaded reaches this Client
// again with the identical fingerprint (the fingerprint carries no
// attempt counter) and must still issue a fresh model call rather than
// replay a cached, already-rejected answer (spec.md §4.5, §8 scenario 3).
type Client struct {
	endpoint        string
	modelIdentifier string
	httpClient      *http.Client
	policy          backoff.Policy
	maxRetries      int
	registry        *Registry

	inflight *group
}

// New builds a Client. timeout bounds a single HTTP call; policy and
// maxRetries govern retries within that call's budget (spec.md §4.5:
// same backoff policy as the blob adapter, capped at MAX_MODEL_RETRIES).
func New(endpoint, modelIdentifier string, timeout time.Duration, policy backoff.Policy, maxRetries int, registry *Registry) *Client {
	return &Client{
		endpoint:        strings.TrimRight(endpoint, "/"),
		modelIdentifier: modelIdentifier,
		httpClient:      &http.Client{Timeout: timeout},
		policy:          policy,
		maxRetries:      maxRetries,
		registry:        registry,
		inflight:        newGroup(),
	}
}

type generateRequest struct {
	SegmentRef      string `json:"segment_ref"`
	Language        string `json:"language"`
	Mode            string `json:"mode"`
	PromptTemplate  string `json:"prompt_template"`
	ModelIdentifier string `json:"model_identifier"`
}

type generateResponse struct {
	CueText string `json:"cue_text"`
}

// Generate produces cue text for a segment. fingerprint must be computed
// by the caller (clockid.Fingerprint) from the segment checksum,
// language, mode, template version and model identifier so single-flight
// dedup keys on the same identity the scheduler uses.
func (c *Client) Generate(ctx context.Context, segmentRef, language string, mode langtag.Mode, fingerprint string) (string, error) {
	tmpl, ok := c.registry.Lookup(language, mode)
	if !ok {
		return "", faults.New(faults.InvalidInput, fmt.Sprintf("no prompt template registered for language %q mode %q", language, mode))
	}

	return c.inflight.do(fingerprint, func() (string, error) {
		return c.generateWithRetries(ctx, segmentRef, language, mode, tmpl)
	})
}

// TemplateVersion returns the registered prompt template's version for
// (language, mode), used by callers that must compute the request
// fingerprint (spec.md §4.5) before calling Generate.
func (c *Client) TemplateVersion(language string, mode langtag.Mode) (string, bool) {
	tmpl, ok := c.registry.Lookup(language, mode)
	if !ok {
		return "", false
	}
	return tmpl.Version, true
}

func (c *Client) generateWithRetries(ctx context.Context, segmentRef, language string, mode langtag.Mode, tmpl Template) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		cueText, err := c.generateOnce(ctx, segmentRef, language, mode, tmpl)
		if err == nil {
			return cueText, nil
		}
		lastErr = err
		if faults.Decide(err).Disposition != faults.DispositionRetry {
			return "", err
		}
		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.policy.Delay(attempt + 1)):
		}
	}
	return "", lastErr
}

func (c *Client) generateOnce(ctx context.Context, segmentRef, language string, mode langtag.Mode, tmpl Template) (string, error) {
	body, err := json.Marshal(generateRequest{
		SegmentRef:      segmentRef,
		Language:        language,
		Mode:            string(mode),
		PromptTemplate:  tmpl.Text,
		ModelIdentifier: c.modelIdentifier,
	})
	if err != nil {
		return "", faults.Wrap(faults.InvalidInput, "marshal generate request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", faults.Wrap(faults.InvalidInput, "build generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", faults.Wrap(faults.TransientIO, "model request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", faults.New(faults.QuotaExceeded, "model endpoint returned 429")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", faults.New(faults.AuthFault, fmt.Sprintf("model endpoint returned %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return "", faults.New(faults.TransientIO, fmt.Sprintf("model endpoint returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return "", faults.New(faults.InvalidInput, fmt.Sprintf("model endpoint returned %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", faults.Wrap(faults.TransientIO, "read model response", err)
	}
	var decoded generateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", faults.Wrap(faults.ModelOutputInvalid, "model response was not valid JSON", err)
	}
	if strings.TrimSpace(decoded.CueText) == "" {
		return "", faults.New(faults.ModelOutputInvalid, "model response had no cue text")
	}
	return decoded.CueText, nil
}
