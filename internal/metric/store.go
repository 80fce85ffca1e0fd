package metric

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ReservedPrefixes are key prefixes owned by the process's own metrics.
// Store keys with these prefixes would collide with them on exposition.
var ReservedPrefixes = []string{"chainbox_", "promhttp_"}

var (
	// ErrUnknownKey is returned when setting a key that was never registered.
	ErrUnknownKey = errors.New("unknown metric key")

	// ErrKindMismatch is returned when a key is used with a kind other than
	// the one it was registered with.
	ErrKindMismatch = errors.New("metric kind mismatch")

	// ErrDuplicateKey is returned when two owners register the same key.
	ErrDuplicateKey = errors.New("duplicate metric key")

	// ErrReservedKey is returned when a key uses a reserved prefix.
	ErrReservedKey = errors.New("reserved metric key")
)

// IsContractViolation reports whether err is a store misuse (unknown key or
// kind mismatch) rather than a transient failure.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrUnknownKey) || errors.Is(err, ErrKindMismatch)
}

// Spec describes a key to register.
type Spec struct {
	Key  string
	Kind Kind
}

// Sample is a point-in-time reading of one key.
type Sample struct {
	Key   string
	Owner string
	Value Value
}

type entry struct {
	owner string
	value Value
}

// Store holds the latest reading for every registered key.
// Keys are only added, never removed.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Register inserts key with a zero value of kind.
// Registering the same key, kind and owner again is a no-op.
func (s *Store) Register(owner, key string, kind Kind) error {
	return s.RegisterAll(owner, []Spec{{Key: key, Kind: kind}})
}

// RegisterAll registers all specs or none of them.
func (s *Store) RegisterAll(owner string, specs []Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sp := range specs {
		if err := s.checkLocked(owner, sp); err != nil {
			return err
		}
	}

	for _, sp := range specs {
		if _, exists := s.entries[sp.Key]; exists {
			continue
		}
		s.entries[sp.Key] = &entry{owner: owner, value: Zero(sp.Kind)}
	}
	return nil
}

func (s *Store) checkLocked(owner string, sp Spec) error {
	if sp.Key == "" {
		return fmt.Errorf("%w: empty key", ErrUnknownKey)
	}
	for _, prefix := range ReservedPrefixes {
		if strings.HasPrefix(sp.Key, prefix) {
			return fmt.Errorf("%w: key %q uses prefix %q", ErrReservedKey, sp.Key, prefix)
		}
	}
	if sp.Kind != KindInt && sp.Kind != KindFloat {
		return fmt.Errorf("key %q: invalid kind %q", sp.Key, sp.Kind)
	}

	e, exists := s.entries[sp.Key]
	if !exists {
		return nil
	}
	if e.value.Kind() != sp.Kind {
		return fmt.Errorf("%w: key %q registered as %s, got %s", ErrKindMismatch, sp.Key, e.value.Kind(), sp.Kind)
	}
	if e.owner != owner {
		return fmt.Errorf("%w: key %q already owned by %q", ErrDuplicateKey, sp.Key, e.owner)
	}
	return nil
}

// Set overwrites the value of a registered key.
func (s *Store) Set(key string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if e.value.Kind() != v.Kind() {
		return fmt.Errorf("%w: key %q registered as %s, got %s", ErrKindMismatch, key, e.value.Kind(), v.Kind())
	}
	e.value = v
	return nil
}

// Get returns the current value of key.
func (s *Store) Get(key string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists {
		return Value{}, false
	}
	return e.value, true
}

// Len returns the number of registered keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns a copy of all entries sorted by key.
func (s *Store) Snapshot() []Sample {
	s.mu.RLock()
	samples := make([]Sample, 0, len(s.entries))
	for key, e := range s.entries {
		samples = append(samples, Sample{Key: key, Owner: e.owner, Value: e.value})
	}
	s.mu.RUnlock()

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Key < samples[j].Key
	})
	return samples
}
