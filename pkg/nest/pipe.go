package nest

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// PipeTransform transforms or validates one handler argument. Returning a
// *ValidationError rejects the request.
type PipeTransform interface {
	Transform(ctx context.Context, value any, meta ArgumentMetadata) (any, error)
}

// PipeFunc adapts a function to PipeTransform
type PipeFunc func(ctx context.Context, value any, meta ArgumentMetadata) (any, error)

func (f PipeFunc) Transform(ctx context.Context, value any, meta ArgumentMetadata) (any, error) {
	return f(ctx, value, meta)
}

// PipeEntry is a registered pipe: an instance or a type to resolve from
// the container
type PipeEntry struct {
	pipe  PipeTransform
	class reflect.Type
}

// PipeValue wraps a pipe instance
func PipeValue(p PipeTransform) PipeEntry {
	return PipeEntry{pipe: p}
}

// PipeClass registers T, resolved from the container on first use
func PipeClass[T PipeTransform]() PipeEntry {
	return PipeEntry{class: reflect.TypeFor[T]()}
}

// PipeRegistry holds the global pipe list
type PipeRegistry struct {
	store     *MetadataStore
	container *Container

	mu     sync.RWMutex
	global []PipeEntry
	frozen bool
}

// NewPipeRegistry creates an empty registry
func NewPipeRegistry(store *MetadataStore, container *Container) *PipeRegistry {
	if store == nil {
		store = DefaultMetadata
	}
	return &PipeRegistry{store: store, container: container}
}

// AddGlobalPipe appends pipes run for every bound argument
func (r *PipeRegistry) AddGlobalPipe(entries ...PipeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}
	for _, e := range entries {
		if e.class != nil {
			r.store.Define(PipeMetadata, true, TypeSubject(e.class))
		}
	}
	r.global = append(r.global, entries...)
	return nil
}

// Freeze refuses further additions
func (r *PipeRegistry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true
}

// Len returns the number of global pipes
func (r *PipeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.global)
}

// ApplyPipes runs the global pipes followed by extra, each receiving the
// previous output. An empty list returns value unchanged. A pipe error is
// returned as is.
func (r *PipeRegistry) ApplyPipes(ctx context.Context, value any, extra []PipeEntry, meta ArgumentMetadata) (any, error) {
	r.mu.RLock()
	pipes := make([]PipeEntry, 0, len(r.global)+len(extra))
	pipes = append(pipes, r.global...)
	r.mu.RUnlock()
	pipes = append(pipes, extra...)

	for _, entry := range pipes {
		if err := ctx.Err(); err != nil {
			return nil, &TimeoutError{Stage: "pipes", Cause: err}
		}
		p, err := r.resolve(entry)
		if err != nil {
			return nil, err
		}
		value, err = p.Transform(ctx, value, meta)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (r *PipeRegistry) resolve(e PipeEntry) (PipeTransform, error) {
	if e.pipe != nil {
		return e.pipe, nil
	}
	if e.class == nil {
		return nil, fmt.Errorf("empty pipe entry")
	}
	if r.container == nil {
		return nil, fmt.Errorf("pipe %s: no container to resolve from", ProviderName(e.class))
	}
	v, err := r.container.Get(e.class)
	if err != nil {
		return nil, fmt.Errorf("pipe %s: %w", ProviderName(e.class), err)
	}
	p, ok := v.(PipeTransform)
	if !ok {
		return nil, fmt.Errorf("pipe %s does not implement Transform", ProviderName(e.class))
	}
	return p, nil
}
