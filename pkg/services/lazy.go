package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
	"github.com/asistentebi/bi-engine/pkg/llm"
)

// Lazy initializes a value on first use. Concurrent callers block on the first
// initialization; a failed initialization is not cached, so the next call tries again.
type Lazy[T any] struct {
	init  func(context.Context) (T, error)
	mu    sync.Mutex
	ready atomic.Bool
	value T
}

// NewLazy returns a Lazy that calls init at most once successfully.
func NewLazy[T any](init func(context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get returns the value, initializing it if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if l.ready.Load() {
		return l.value, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ready.Load() {
		return l.value, nil
	}

	v, err := l.init(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.value = v
	l.ready.Store(true)
	return v, nil
}

// Peek returns the value without initializing it.
func (l *Lazy[T]) Peek() (T, bool) {
	if l.ready.Load() {
		return l.value, true
	}
	var zero T
	return zero, false
}

// StoreSource hands out the process-wide store.
type StoreSource interface {
	Store(ctx context.Context) (datasource.Store, error)
}

// ServiceContext owns the two process-wide clients: the chat model and the store.
// Both are created on first use and shared read-only by every request afterwards.
type ServiceContext struct {
	model *Lazy[llm.ChatModel]
	store *Lazy[datasource.Store]
}

var _ StoreSource = (*ServiceContext)(nil)

// NewServiceContext wires the client constructors. Neither runs until first use.
func NewServiceContext(
	newModel func(context.Context) (llm.ChatModel, error),
	newStore func(context.Context) (datasource.Store, error),
) *ServiceContext {
	return &ServiceContext{
		model: NewLazy(newModel),
		store: NewLazy(newStore),
	}
}

// Model returns the chat model. Initialization failures come back as *InitError.
func (s *ServiceContext) Model(ctx context.Context) (llm.ChatModel, error) {
	m, err := s.model.Get(ctx)
	if err != nil {
		return nil, &InitError{Component: "model", Err: err}
	}
	return m, nil
}

// Store returns the store. Initialization failures come back as *InitError.
func (s *ServiceContext) Store(ctx context.Context) (datasource.Store, error) {
	st, err := s.store.Get(ctx)
	if err != nil {
		return nil, &InitError{Component: "store", Err: err}
	}
	return st, nil
}

// Ready reports which clients have been initialized.
func (s *ServiceContext) Ready() (model, store bool) {
	_, model = s.model.Peek()
	_, store = s.store.Peek()
	return model, store
}

// Close releases the store if it was ever opened.
func (s *ServiceContext) Close() error {
	if st, ok := s.store.Peek(); ok {
		return st.Close()
	}
	return nil
}
