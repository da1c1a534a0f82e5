// Package vnstat samples interface traffic by running `vnstat --json`.
package vnstat

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
	"github.com/vshulcz/vnstat-exporter/internal/ports"
)

// Runner executes name with args and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Sampler invokes the vnstat binary once per Sample call.
type Sampler struct {
	run   Runner
	now   func() time.Time
	allow map[string]struct{}
	path  string
}

var _ ports.Sampler = (*Sampler)(nil)

// Option customizes a Sampler.
type Option func(*Sampler)

// WithInterfaces restricts samples to the named interfaces. An empty list keeps all.
func WithInterfaces(names []string) Option {
	return func(s *Sampler) {
		if len(names) == 0 {
			s.allow = nil
			return
		}
		s.allow = make(map[string]struct{}, len(names))
		for _, n := range names {
			s.allow[n] = struct{}{}
		}
	}
}

// WithRunner replaces process execution, mostly for tests.
func WithRunner(r Runner) Option {
	return func(s *Sampler) { s.run = r }
}

// WithNow replaces the clock used for interfaces without an update time.
func WithNow(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// New returns a Sampler executing the vnstat binary at path.
func New(path string, opts ...Option) *Sampler {
	s := &Sampler{path: path, run: execRunner, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Sample runs vnstat and parses its output. The caller's context bounds the run.
func (s *Sampler) Sample(ctx context.Context) ([]domain.InterfaceSample, error) {
	out, err := s.run(ctx, s.path, "--json")
	if err != nil {
		return nil, classify(ctx, s.path, err)
	}
	samples, err := Parse(out, s.now())
	if err != nil {
		return nil, err
	}
	if s.allow == nil {
		return samples, nil
	}
	kept := samples[:0]
	for _, smp := range samples {
		if _, ok := s.allow[smp.Name]; ok {
			kept = append(kept, smp)
		}
	}
	return kept, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = time.Second
	return cmd.Output()
}

func classify(ctx context.Context, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, path, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(string(exitErr.Stderr))
		if msg == "" {
			return fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, path, err)
		}
		return fmt.Errorf("%w: %s: %v: %s", domain.ErrSourceUnavailable, path, err, msg)
	}
	return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
}
