// Package arena provides a per-request scratch allocator. It is the Go
// rendition of a thread-local bump allocator reset once per request: every
// buffer handed out by an Arena is returned to its size class on Reset, and
// buffers likely to have held ciphertext or plaintext are zeroed first.
package arena

import (
	"sync"

	qerrors "github.com/sapphire-relay/encrypting-proxy/internal/errors"
)

// Size classes, chosen to comfortably hold the default 1MiB request body
// plus its rewritten/encrypted form, without forcing every small
// pass-through request through the largest class.
const (
	classSmall  = 4 * 1024
	classMedium = 64 * 1024
	classLarge  = 1536 * 1024
)

// Pool is a process-wide set of size-classed sync.Pools. A handler obtains
// an Arena from the Pool at the top of a request and calls Reset on it when
// the request completes, which returns its buffers to the Pool.
type Pool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

// NewPool creates a new arena pool.
func NewPool() *Pool {
	p := &Pool{}
	p.small.New = func() any { b := make([]byte, classSmall); return &b }
	p.medium.New = func() any { b := make([]byte, classMedium); return &b }
	p.large.New = func() any { b := make([]byte, classLarge); return &b }
	return p
}

// Get returns a fresh Arena backed by this pool. The Arena itself is not
// pooled; only the buffers it hands out are.
func (p *Pool) Get() *Arena {
	return &Arena{pool: p}
}

// Arena is a per-request scratch allocator. It is not safe for concurrent
// use: a single request owns exactly one Arena for its lifetime.
type Arena struct {
	pool     *Pool
	acquired []acquiredBuf
}

type acquiredBuf struct {
	class int // 0=small,1=medium,2=large,-1=oversized (heap, not pooled)
	buf   []byte
}

// Get returns a buffer of at least n bytes. The returned slice has length n;
// its backing capacity may exceed n.
func (a *Arena) Get(n int) ([]byte, error) {
	if n < 0 {
		return nil, qerrors.ErrArenaTooSmall
	}
	switch {
	case n <= classSmall:
		b := *a.pool.small.Get().(*[]byte)
		a.acquired = append(a.acquired, acquiredBuf{class: 0, buf: b})
		return b[:n], nil
	case n <= classMedium:
		b := *a.pool.medium.Get().(*[]byte)
		a.acquired = append(a.acquired, acquiredBuf{class: 1, buf: b})
		return b[:n], nil
	case n <= classLarge:
		b := *a.pool.large.Get().(*[]byte)
		a.acquired = append(a.acquired, acquiredBuf{class: 2, buf: b})
		return b[:n], nil
	default:
		b := make([]byte, n)
		a.acquired = append(a.acquired, acquiredBuf{class: -1, buf: b})
		return b, nil
	}
}

// Reset zeroes and returns every buffer this Arena has handed out back to
// its size class, then clears the Arena's bookkeeping so it can be reused
// for the next request. Buffers that came from an oversized allocation are
// simply dropped (not pooled).
func (a *Arena) Reset() {
	for _, ab := range a.acquired {
		full := ab.buf[:cap(ab.buf)]
		for i := range full {
			full[i] = 0
		}
		switch ab.class {
		case 0:
			a.pool.small.Put(&full)
		case 1:
			a.pool.medium.Put(&full)
		case 2:
			a.pool.large.Put(&full)
		}
	}
	a.acquired = a.acquired[:0]
}
