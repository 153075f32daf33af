package cdn

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"

	pkgerrors "github.com/joe/client-sync/pkg/errors"
)

// maxErrorBodyDrain bounds how much of an error response is read before closing it.
const maxErrorBodyDrain = 4 * 1024

// HTTPOrigin reads objects with GET {base}/{key}.
type HTTPOrigin struct {
	base      *url.URL
	client    *http.Client
	userAgent string
}

// NewHTTPOrigin creates an origin rooted at base. A nil client means http.DefaultClient.
func NewHTTPOrigin(base *url.URL, client *http.Client, userAgent string) *HTTPOrigin {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPOrigin{base: base, client: client, userAgent: userAgent}
}

// Close is a no-op; connections belong to the http.Client.
func (o *HTTPOrigin) Close() error {
	return nil
}

// Open issues the GET request. Transport failures and non-2xx statuses are network errors.
func (o *HTTPOrigin) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	target := o.base.JoinPath(key).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", target)
	}

	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Network(err, "GET %s", target)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.CopyN(io.Discard, resp.Body, maxErrorBodyDrain)
		_ = resp.Body.Close()

		return nil, pkgerrors.Network(errors.Newf("unexpected status %s", resp.Status), "GET %s", target)
	}

	return resp.Body, nil
}
