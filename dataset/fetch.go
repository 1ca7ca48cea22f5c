package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v5"
)

var (
	// ErrMemberNotFound is returned when an archive lacks the requested file.
	ErrMemberNotFound = errors.New("archive member not found")
	// ErrStatus is returned for a non-2xx download response.
	ErrStatus = errors.New("unexpected HTTP status")
)

// DefaultFetchTries bounds the download attempts of FetchArchiveMember.
const DefaultFetchTries = 4

// maxArchiveSize caps the bytes read from one download.
const maxArchiveSize = 256 << 20

// FetchArchiveMember downloads the zip archive at url and returns the
// contents of member. Transient failures (transport errors, 5xx and 429
// responses) are retried with exponential backoff; a nil client uses
// http.DefaultClient.
func FetchArchiveMember(ctx context.Context, client *http.Client, url, member string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return download(ctx, client, url)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(DefaultFetchTries),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("opening archive from %s: %w", url, err)
	}
	for _, file := range archive.File {
		if file.Name != member {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, member)
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrStatus, resp.Status))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArchiveSize))
}
