package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// Probe is the capability every security dimension implements.
type Probe interface {
	// Name identifies the probe in reports and failure titles (e.g. "HeaderPolicyProbe").
	Name() string

	// Scan evaluates target and returns its findings. It never panics past its
	// boundary and reports collaborator faults as error findings.
	Scan(ctx context.Context, target string) []finding.Finding
}

// Locator is implemented by probes that report every finding under one location
type Locator interface {
	Location() string
}

// Clock returns the current time. Probes take one so certificate arithmetic is testable.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// Pool bounds how many blocking collaborator calls run at once across probes.
// A nil Pool does not bound anything.
type Pool struct {
	slots chan struct{}
}

// NewPool returns a pool with size slots. size <= 0 means unbounded.
func NewPool(size int) *Pool {
	if size <= 0 {
		return nil
	}
	return &Pool{slots: make(chan struct{}, size)}
}

func (p *Pool) acquire(ctx context.Context) error {
	if p == nil {
		return nil
	}
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) release() {
	if p == nil {
		return
	}
	<-p.slots
}

// Blocking runs fn on a pool worker and waits for it or for ctx, whichever ends first.
// When ctx ends first the worker is abandoned; its slot is returned once fn returns.
// A panic inside fn is reported as an error wrapping ErrProbePanic.
func Blocking[T any](ctx context.Context, pool *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := pool.acquire(ctx); err != nil {
		return zero, err
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer pool.release()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", domainerrors.ErrProbePanic, r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// recoverScan turns a panic at a probe boundary into a single error finding.
func recoverScan(out *[]finding.Finding, probeKey, title, location string) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("%w: %v", domainerrors.ErrProbePanic, r)
	*out = []finding.Finding{finding.Error(finding.NewID(probeKey, "scan-failed"), title, location, err)}
}
