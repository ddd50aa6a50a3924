package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNoProvider is returned when neither the preferred provider nor the
// fallback could produce a result.
var ErrNoProvider = errors.New("transcribe: no provider could produce a result")

// Router selects a backend per request, tracks availability, and falls back
// to the designated always-available provider when the preferred one cannot
// serve. At most one fallback attempt is made per dispatch.
type Router struct {
	providers map[string]Provider
	fallback  string
	timeout   time.Duration

	mu        sync.Mutex
	available map[string]bool

	stopHealth chan struct{}
	healthOnce sync.Once
}

// NewRouter creates a router over the given providers. fallback names the
// provider used when the preferred one is unavailable or fails; it must be
// one of the providers. timeout bounds each provider call.
func NewRouter(providers []Provider, fallback string, timeout time.Duration) (*Router, error) {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	if _, ok := byName[fallback]; !ok {
		return nil, fmt.Errorf("transcribe: fallback provider %q not registered", fallback)
	}

	r := &Router{
		providers:  byName,
		fallback:   fallback,
		timeout:    timeout,
		available:  make(map[string]bool, len(providers)),
		stopHealth: make(chan struct{}),
	}
	r.refreshAvailability()
	return r, nil
}

// Dispatch routes one request to the preferred provider, falling back once
// to the fallback provider on unavailability or failure. The result always
// has non-nil defaults: language "unknown" when the backend reported none.
func (r *Router) Dispatch(ctx context.Context, preferred string, req Request) (Result, error) {
	primary := r.pick(preferred)
	usedFallback := primary.Name() != preferred

	res, err := r.call(ctx, primary, req)
	if err == nil {
		res.UsedFallback = usedFallback
		return normalizeResult(res), nil
	}

	r.markUnavailable(primary.Name(), err)

	if primary.Name() == r.fallback {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrNoProvider, primary.Name(), err)
	}

	fb := r.providers[r.fallback]
	res, fbErr := r.call(ctx, fb, req)
	if fbErr != nil {
		r.markUnavailable(fb.Name(), fbErr)
		return Result{}, fmt.Errorf("%w: %s: %v; fallback %s: %v",
			ErrNoProvider, primary.Name(), err, fb.Name(), fbErr)
	}

	res.UsedFallback = true
	return normalizeResult(res), nil
}

// pick returns the preferred provider when registered and available,
// otherwise the fallback.
func (r *Router) pick(preferred string) Provider {
	p, ok := r.providers[preferred]
	if !ok {
		return r.providers[r.fallback]
	}

	r.mu.Lock()
	avail, known := r.available[preferred]
	r.mu.Unlock()
	if !known {
		// Lazy availability: ask the provider directly on first use.
		avail = p.Available()
		r.mu.Lock()
		r.available[preferred] = avail
		r.mu.Unlock()
	}

	if !avail {
		return r.providers[r.fallback]
	}
	return p
}

func (r *Router) call(ctx context.Context, p Provider, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return p.Transcribe(ctx, req)
}

func (r *Router) markUnavailable(name string, err error) {
	r.mu.Lock()
	r.available[name] = false
	r.mu.Unlock()
	slog.Warn("[router] provider marked unavailable", "provider", name, "error", err)
}

// Availability returns the current per-provider availability snapshot.
func (r *Router) Availability() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.available))
	for k, v := range r.available {
		out[k] = v
	}
	return out
}

// refreshAvailability re-asks every provider whether its prerequisites are
// met, clearing failure marks for providers whose prerequisite reappeared.
func (r *Router) refreshAvailability() {
	for name, p := range r.providers {
		avail := p.Available()
		r.mu.Lock()
		r.available[name] = avail
		r.mu.Unlock()
	}
}

// StartHealthLoop refreshes availability every interval until Stop.
func (r *Router) StartHealthLoop(interval time.Duration) {
	r.healthOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-r.stopHealth:
					return
				case <-ticker.C:
					r.refreshAvailability()
				}
			}
		}()
	})
}

// Stop terminates the health loop and closes every provider.
func (r *Router) Stop() {
	select {
	case <-r.stopHealth:
	default:
		close(r.stopHealth)
	}
	for name, p := range r.providers {
		if err := p.Close(); err != nil {
			slog.Warn("[router] closing provider failed", "provider", name, "error", err)
		}
	}
}

// normalizeResult fills defaults so downstream code never branches on
// provider identity.
func normalizeResult(res Result) Result {
	if res.Language == "" {
		res.Language = "unknown"
	}
	return res
}
