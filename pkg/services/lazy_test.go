package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
	"github.com/asistentebi/bi-engine/pkg/llm"
)

func TestLazy_InitializesOnceUnderContention(t *testing.T) {
	var calls atomic.Int32
	lazy := NewLazy(func(context.Context) (*int, error) {
		calls.Add(1)
		v := 42
		return &v, nil
	})

	const goroutines = 50
	results := make([]*int, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := lazy.Get(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestLazy_FailureIsNotCached(t *testing.T) {
	var calls int
	lazy := NewLazy(func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("model endpoint unreachable")
		}
		return "ready", nil
	})

	_, err := lazy.Get(context.Background())
	require.Error(t, err)
	_, ok := lazy.Peek()
	assert.False(t, ok)

	v, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", v)

	v, err = lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", v)
	assert.Equal(t, 2, calls)
}

func TestServiceContext(t *testing.T) {
	store := datasource.NewMockStore(nil, nil)
	var modelInits atomic.Int32
	sc := NewServiceContext(
		func(context.Context) (llm.ChatModel, error) {
			modelInits.Add(1)
			return llm.NewMockChatModel(), nil
		},
		func(context.Context) (datasource.Store, error) { return store, nil },
	)

	model, st := sc.Ready()
	assert.False(t, model)
	assert.False(t, st)

	// closing before first use is a no-op
	require.NoError(t, sc.Close())
	assert.False(t, store.Closed())

	_, err := sc.Model(context.Background())
	require.NoError(t, err)
	_, err = sc.Model(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), modelInits.Load())

	got, err := sc.Store(context.Background())
	require.NoError(t, err)
	assert.Same(t, store, got)

	model, st = sc.Ready()
	assert.True(t, model)
	assert.True(t, st)

	require.NoError(t, sc.Close())
	assert.True(t, store.Closed())
}

func TestServiceContext_ModelInitError(t *testing.T) {
	sc := NewServiceContext(
		func(context.Context) (llm.ChatModel, error) { return nil, errors.New("model is required") },
		nil,
	)

	_, err := sc.Model(context.Background())

	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "model", initErr.Component)
	assert.Equal(t, "Error de inicialización: model: model is required", err.Error())
}
