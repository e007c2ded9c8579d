package nest

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Container resolves providers from their constructor metadata and caches
// one instance per provider name
type Container struct {
	store *MetadataStore

	mu        sync.Mutex
	instances map[string]any
	order     []string
	resolving map[string]bool
}

// NewContainer creates an empty container reading metadata from store
func NewContainer(store *MetadataStore) *Container {
	if store == nil {
		store = DefaultMetadata
	}
	return &Container{
		store:     store,
		instances: make(map[string]any),
		resolving: make(map[string]bool),
	}
}

// Get returns the instance for t, constructing and caching it on first use
func (c *Container) Get(t reflect.Type) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resolve(t, nil)
}

// AddProvider constructs and caches t. It is a no-op if t already has an
// instance.
func (c *Container) AddProvider(t reflect.Type) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.resolve(t, nil)
	return err
}

// Has reports whether an instance of t is cached
func (c *Container) Has(t reflect.Type) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.instances[ProviderName(t)]
	return ok
}

// Instances returns every cached instance in construction order
func (c *Container) Instances() []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]any, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.instances[name])
	}
	return out
}

// Clear drops every cached instance
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.instances = make(map[string]any)
	c.order = nil
	c.resolving = make(map[string]bool)
}

// Resolve returns the instance registered for T
func Resolve[T any](c *Container) (T, error) {
	var zero T
	v, err := c.Get(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("provider %s resolved to %T", ProviderName(reflect.TypeFor[T]()), v)
	}
	return typed, nil
}

func (c *Container) resolve(t reflect.Type, chain []string) (any, error) {
	name := ProviderName(t)
	if instance, ok := c.instances[name]; ok {
		return instance, nil
	}

	def, ok := c.lookup(t)
	if !ok {
		return nil, &ProviderNotFoundError{Provider: name, Reason: "no constructor declared"}
	}
	if def.value.IsValid() {
		return c.cache(name, def.value.Interface()), nil
	}

	ctorType := def.ctor.Type()
	for i := 0; i < ctorType.NumIn(); i++ {
		if ctorType.In(i) == t {
			return nil, &CircularDependencyError{Provider: name}
		}
	}

	chain = append(chain, name)
	if c.resolving[name] {
		return nil, &CircularDependencyError{Provider: chain[0], Chain: chain}
	}
	c.resolving[name] = true
	defer delete(c.resolving, name)

	args := make([]reflect.Value, ctorType.NumIn())
	for i := range args {
		dep := ctorType.In(i)
		instance, err := c.resolve(dep, chain)
		if err != nil {
			var notFound *ProviderNotFoundError
			if errors.As(err, &notFound) && notFound.RequiredBy == "" {
				notFound.RequiredBy = name
			}
			return nil, err
		}
		args[i] = valueFor(instance, dep)
	}

	out, err := call(def.ctor, args)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", name, err)
	}
	return c.cache(name, out), nil
}

func (c *Container) cache(name string, instance any) any {
	c.instances[name] = instance
	c.order = append(c.order, name)
	return instance
}

// lookup finds the constructor for t. Pointers to structs without a
// declared constructor are built as zero values.
func (c *Container) lookup(t reflect.Type) (providerDef, bool) {
	if t == nil {
		return providerDef{}, false
	}
	if v, ok := c.store.Get(InjectableMetadata, TypeSubject(t)); ok {
		if def, ok := v.(providerDef); ok {
			return def, true
		}
	}
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		ctor := reflect.MakeFunc(reflect.FuncOf(nil, []reflect.Type{t}, false), func([]reflect.Value) []reflect.Value {
			return []reflect.Value{reflect.New(t.Elem())}
		})
		return providerDef{ctor: ctor}, true
	}
	return providerDef{}, false
}

func call(ctor reflect.Value, args []reflect.Value) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()

	out := ctor.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// valueFor converts a cached instance into an argument of type t. A nil
// interface result becomes the zero value.
func valueFor(instance any, t reflect.Type) reflect.Value {
	if instance == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(instance)
}
