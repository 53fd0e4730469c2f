package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"subtitlegen/internal/backoff"
	"subtitlegen/internal/faults"
)

// Store is a client for an opaque object store reached over HTTP. The
// wire protocol is intentionally minimal (PUT to upload, HEAD to check
// existence, DELETE to reap a namespace) so any S3-compatible or
// bespoke blob service can sit behind it.
type Store struct {
	baseURL    string
	client     *http.Client
	policy     backoff.Policy
	maxRetries int
}

// New builds a Store. timeout bounds every individual HTTP call (spec.md
// §4.4 default 5 min per blob); policy and maxRetries govern the capped
// exponential retry loop around transient failures.
func New(baseURL string, timeout time.Duration, policy backoff.Policy, maxRetries int) *Store {
	return &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		policy:     policy,
		maxRetries: maxRetries,
	}
}

func (s *Store) objectURL(namespace, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, namespace, key)
}

func (s *Store) prefixURL(namespace string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, namespace)
}

// Put uploads localPath to namespace/key and returns an opaque remote
// reference. It is idempotent: if a blob already exists at the key with
// the same content hash, it succeeds without re-uploading (spec.md §4.4).
func (s *Store) Put(ctx context.Context, namespace, key, localPath string) (string, error) {
	checksum, err := checksumFile(localPath)
	if err != nil {
		return "", faults.Wrap(faults.InvalidInput, "read local file for upload", err)
	}

	existingChecksum, exists, err := s.headChecksum(ctx, namespace, key)
	if err != nil {
		return "", err
	}
	if exists && existingChecksum == checksum {
		return s.objectURL(namespace, key), nil
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", faults.Wrap(faults.InvalidInput, "read local file for upload", err)
	}

	err = s.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(namespace, key), bytes.NewReader(data))
		if err != nil {
			return faults.Wrap(faults.InvalidInput, "build put request", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("X-Content-Checksum", checksum)
		resp, err := s.client.Do(req)
		if err != nil {
			return classifyTransportErr(err)
		}
		defer resp.Body.Close()
		return classifyStatus(resp.StatusCode)
	})
	if err != nil {
		return "", err
	}
	return s.objectURL(namespace, key), nil
}

// Exists reports whether a blob is present at namespace/key.
func (s *Store) Exists(ctx context.Context, namespace, key string) (bool, error) {
	_, exists, err := s.headChecksum(ctx, namespace, key)
	return exists, err
}

func (s *Store) headChecksum(ctx context.Context, namespace, key string) (checksum string, exists bool, err error) {
	err = s.retry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodHead, s.objectURL(namespace, key), nil)
		if reqErr != nil {
			return faults.Wrap(faults.InvalidInput, "build head request", reqErr)
		}
		resp, doErr := s.client.Do(req)
		if doErr != nil {
			return classifyTransportErr(doErr)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			exists = false
			return nil
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			exists = true
			checksum = resp.Header.Get("X-Content-Checksum")
			return nil
		}
		return classifyStatus(resp.StatusCode)
	})
	return checksum, exists, err
}

// DeletePrefix removes every blob under a namespace, used by
// internal/cleanup when a job reaches a terminal stage.
func (s *Store) DeletePrefix(ctx context.Context, namespace string) error {
	return s.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.prefixURL(namespace), nil)
		if err != nil {
			return faults.Wrap(faults.InvalidInput, "build delete request", err)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return classifyTransportErr(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return classifyStatus(resp.StatusCode)
	})
}

// Ping issues a fast, no-retry HEAD request against the store's base URL
// to verify the endpoint is reachable, for health reporting. Any HTTP
// response, including a 404, means the server answered; only a
// transport failure is unhealthy.
func (s *Store) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL, nil)
	if err != nil {
		return faults.Wrap(faults.InvalidInput, "build health check request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return classifyTransportErr(err)
	}
	defer resp.Body.Close()
	return nil
}

// retry runs fn, retrying on faults whose policy disposition is Retry,
// up to maxRetries, sleeping according to the backoff policy between
// attempts.
func (s *Store) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if faults.Decide(lastErr).Disposition != faults.DispositionRetry {
			return lastErr
		}
		if attempt == s.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.policy.Delay(attempt + 1)):
		}
	}
	return lastErr
}

func classifyTransportErr(err error) error {
	return faults.Wrap(faults.TransientIO, "blob store request failed", err)
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return faults.New(faults.AuthFault, fmt.Sprintf("blob store returned %d", status))
	case status == http.StatusBadRequest:
		return faults.New(faults.InvalidInput, fmt.Sprintf("blob store returned %d", status))
	case status >= 500:
		return faults.New(faults.TransientIO, fmt.Sprintf("blob store returned %d", status))
	default:
		return faults.New(faults.TransientIO, fmt.Sprintf("blob store returned unexpected status %d", status))
	}
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
