package klei

import (
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/semaphore"
)

// poolTransport caps the number of simultaneous requests across every stage
// and call sharing the client. A slot is held until the response body is
// closed.
type poolTransport struct {
	base http.RoundTripper
	sem  *semaphore.Weighted
}

func newPoolTransport(base http.RoundTripper, size int) *poolTransport {
	if size < 1 {
		size = 1
	}
	return &poolTransport{base: base, sem: semaphore.NewWeighted(int64(size))}
}

func newBaseTransport(size int) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = size
	t.MaxIdleConnsPerHost = size
	t.MaxConnsPerHost = size
	return t
}

func (t *poolTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.sem.Acquire(req.Context(), 1); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: func() { t.sem.Release(1) }}
	return resp, nil
}

func (t *poolTransport) CloseIdleConnections() {
	if c, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}
