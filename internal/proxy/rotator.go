package proxy

import (
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Rotator hands out egress proxies round-robin. The pool is fixed at
// construction; a dead proxy is not removed, the request using it simply
// fails and the caller decides what to do with that.
type Rotator struct {
	endpoints []*url.URL
	next      atomic.Uint64
}

func NewRotator(endpoints []string) (*Rotator, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("proxy pool is empty")
	}

	parsed := make([]*url.URL, 0, len(endpoints))
	for _, e := range endpoints {
		u, err := url.Parse(e)
		if err != nil {
			return nil, errors.Wrapf(err, "parse proxy endpoint %q", e)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.Errorf("proxy endpoint %q: missing scheme or host", e)
		}
		parsed = append(parsed, u)
	}

	return &Rotator{endpoints: parsed}, nil
}

// Next returns the next proxy in round-robin order. Safe for concurrent use.
func (r *Rotator) Next() *url.URL {
	n := r.next.Add(1) - 1
	return r.endpoints[n%uint64(len(r.endpoints))]
}

// Size returns the pool size.
func (r *Rotator) Size() int {
	return len(r.endpoints)
}

// ProxyFunc adapts the rotator to http.Transport.Proxy. Selection is per
// request, not per session: two requests on the same panel session may leave
// through different egress proxies.
func (r *Rotator) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return r.Next(), nil
	}
}
