// Package nest provides a metadata-driven IoC web framework: types declare
// their role (controller, injectable, module, middleware, pipe) through an
// explicit declaration step and the framework wires a dependency graph, an
// HTTP router and a per-request pipeline from that metadata at start-up.
package nest

import (
	"reflect"
	"sync"
)

// Metadata keys written by the declaration helpers
const (
	ControllerMetadata = "controller:metadata"
	RouteMetadata      = "route:metadata"
	MethodMetadata     = "method:metadata"
	ParamMetadata      = "param:metadata"
	InjectableMetadata = "injectable:metadata"
	ModuleMetadata     = "module:metadata"
	MiddlewareMetadata = "middleware:metadata"
	PipeMetadata       = "pipe:metadata"
)

// Subject identifies what a metadata entry is attached to: a type when
// Method is empty, otherwise a method of that type.
type Subject struct {
	Type   reflect.Type
	Method string
}

// TypeSubject returns the subject for a type
func TypeSubject(t reflect.Type) Subject {
	return Subject{Type: t}
}

// MethodSubject returns the subject for a method of a type
func MethodSubject(t reflect.Type, method string) Subject {
	return Subject{Type: t, Method: method}
}

// MetadataStore holds key/value annotations for types, methods and
// parameter lists. It is safe for concurrent use.
type MetadataStore struct {
	mu      sync.RWMutex
	entries map[Subject]map[string]any
	params  map[Subject][]ParamBinding
}

// NewMetadataStore creates an empty metadata store
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		entries: make(map[Subject]map[string]any),
		params:  make(map[Subject][]ParamBinding),
	}
}

// DefaultMetadata is the process-wide metadata store used by the
// declaration helpers and by an Application built without WithMetadata.
var DefaultMetadata = NewMetadataStore()

// Define sets the value for key on subject, replacing any previous value
func (s *MetadataStore) Define(key string, value any, subject Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.entries[subject]
	if !ok {
		values = make(map[string]any)
		s.entries[subject] = values
	}
	values[key] = value
}

// Get returns the value stored for key on subject
func (s *MetadataStore) Get(key string, subject Subject) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[subject][key]
	return value, ok
}

// Has reports whether subject carries a value for key
func (s *MetadataStore) Has(key string, subject Subject) bool {
	_, ok := s.Get(key, subject)
	return ok
}

// Keys returns every key defined on subject
func (s *MetadataStore) Keys(subject Subject) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries[subject]))
	for key := range s.entries[subject] {
		keys = append(keys, key)
	}
	return keys
}

// AppendParam records a parameter binding for a method. Bindings keep
// their append order; consumers must order them by ParamBinding.Index.
func (s *MetadataStore) AppendParam(subject Subject, binding ParamBinding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.params[subject] = append(s.params[subject], binding)
}

// Params returns a copy of the parameter bindings recorded for a method,
// in append order
func (s *MetadataStore) Params(subject Subject) []ParamBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]ParamBinding(nil), s.params[subject]...)
}

// Reset drops every entry
func (s *MetadataStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[Subject]map[string]any)
	s.params = make(map[Subject][]ParamBinding)
}

// DefineClassMetadata attaches custom metadata to a type. It is the
// building block for user-defined class decorators.
func DefineClassMetadata(store *MetadataStore, key string, value any, t reflect.Type) {
	store.Define(key, value, TypeSubject(t))
}

// DefineMethodMetadata attaches custom metadata to a method
func DefineMethodMetadata(store *MetadataStore, key string, value any, t reflect.Type, method string) {
	store.Define(key, value, MethodSubject(t, method))
}

// TypeOf returns the reflect.Type of T; use it to name modules and
// providers, e.g. nest.TypeOf[*UserService]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
