package fileops

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// NewLimiter returns a limiter allowing bytesPerSec bytes per second shared by every
// reader it wraps, or nil when bytesPerSec is not positive.
func NewLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(bytesPerSec), BufferSize)
}

// NewLimitedReader wraps r so reads wait on limiter. A nil limiter returns r unchanged.
func NewLimitedReader(ctx context.Context, r io.Reader, limiter *rate.Limiter) io.Reader {
	if limiter == nil {
		return r
	}

	return &limitedReader{ctx: ctx, r: r, limiter: limiter}
}

type limitedReader struct {
	ctx     context.Context //nolint:containedctx // Reads have no context parameter
	r       io.Reader
	limiter *rate.Limiter
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if burst := l.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := l.r.Read(p)
	if n > 0 {
		waitErr := l.limiter.WaitN(l.ctx, n)
		if waitErr != nil {
			return n, errors.Wrap(waitErr, "rate limit")
		}
	}

	return n, err //nolint:wrapcheck // io.Reader contract requires bare io.EOF
}
