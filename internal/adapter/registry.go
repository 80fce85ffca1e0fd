package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/neox5/chainbox/internal/config"
	"github.com/neox5/chainbox/internal/metric"
)

// SourceError attributes a construction failure to a named source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Registry holds the adapters built at startup. It is not modified after
// BuildRegistry returns.
type Registry struct {
	adapters map[string]Adapter
	names    []string
}

// BuildRegistry builds one adapter per enabled source. A source that fails
// to build is skipped and reported in the returned error; the registry
// always contains every adapter that was built.
func BuildRegistry(ctx context.Context, sources []config.SourceConfig, store *metric.Store, clients Clients, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{adapters: make(map[string]Adapter)}
	var errs []error

	for _, src := range sources {
		if !src.Enabled {
			logger.Info("source disabled", "source", src.Name)
			continue
		}

		if _, exists := r.adapters[src.Name]; exists {
			errs = append(errs, &SourceError{Source: src.Name, Err: errors.New("duplicate source name")})
			continue
		}

		a, err := New(ctx, src, store, clients)
		if err != nil {
			logger.Error("failed to build source", "source", src.Name, "type", src.Type, "error", err)
			errs = append(errs, &SourceError{Source: src.Name, Err: err})
			continue
		}

		r.adapters[src.Name] = a
		r.names = append(r.names, src.Name)
		logger.Info("registered source", "source", src.Name, "type", src.Type, "keys", len(a.Keys()))
	}

	sort.Strings(r.names)
	return r, errors.Join(errs...)
}

// NewRegistry creates a registry from already built adapters.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := r.adapters[a.Name()]; exists {
			return nil, fmt.Errorf("duplicate adapter name %q", a.Name())
		}
		r.adapters[a.Name()] = a
		r.names = append(r.names, a.Name())
	}
	sort.Strings(r.names)
	return r, nil
}

// Names returns the adapter names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Adapters returns all adapters in name order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.adapters[name])
	}
	return out
}

// Len returns the number of adapters.
func (r *Registry) Len() int {
	return len(r.names)
}

// Close releases adapter resources.
func (r *Registry) Close() error {
	var errs []error
	for _, a := range r.Adapters() {
		if c, ok := a.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", a.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
