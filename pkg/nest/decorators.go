package nest

import (
	"fmt"
	"net/http"
	"reflect"
)

// RouteDefinition declares one controller method as an HTTP route
type RouteDefinition struct {
	Method  string
	Path    string
	Handler string
	Params  []ParamBinding
}

func route(method, path, handler string, params []ParamBinding) RouteDefinition {
	return RouteDefinition{Method: method, Path: path, Handler: handler, Params: params}
}

// Get declares a GET route handled by the named method. Parameter
// bindings take the index of their position unless pinned with At.
func Get(path, handler string, params ...ParamBinding) RouteDefinition {
	return route(http.MethodGet, path, handler, params)
}

func Post(path, handler string, params ...ParamBinding) RouteDefinition {
	return route(http.MethodPost, path, handler, params)
}

func Put(path, handler string, params ...ParamBinding) RouteDefinition {
	return route(http.MethodPut, path, handler, params)
}

func Delete(path, handler string, params ...ParamBinding) RouteDefinition {
	return route(http.MethodDelete, path, handler, params)
}

func Patch(path, handler string, params ...ParamBinding) RouteDefinition {
	return route(http.MethodPatch, path, handler, params)
}

func Options(path, handler string, params ...ParamBinding) RouteDefinition {
	return route(http.MethodOptions, path, handler, params)
}

func Head(path, handler string, params ...ParamBinding) RouteDefinition {
	return route(http.MethodHead, path, handler, params)
}

// All declares a route matching every HTTP method
func All(path, handler string, params ...ParamBinding) RouteDefinition {
	return route(MethodAll, path, handler, params)
}

// DeclareController records controller and route metadata for t
func DeclareController(store *MetadataStore, t reflect.Type, prefix string, routes ...RouteDefinition) error {
	name := ProviderName(t)
	for _, r := range routes {
		if _, ok := t.MethodByName(r.Handler); !ok {
			return &RouteDefinitionError{Controller: name, Method: r.Handler, Reason: "no such exported method"}
		}
		if store.Has(MethodMetadata, MethodSubject(t, r.Handler)) {
			return &RouteDefinitionError{Controller: name, Method: r.Handler, Reason: "route declared twice"}
		}
	}

	store.Define(ControllerMetadata, prefix, TypeSubject(t))
	order, _ := store.Get(routeOrderMetadata, TypeSubject(t))
	handlers, _ := order.([]string)
	for _, r := range routes {
		handlers = append(handlers, r.Handler)
	}
	store.Define(routeOrderMetadata, handlers, TypeSubject(t))

	for _, r := range routes {
		subject := MethodSubject(t, r.Handler)
		store.Define(RouteMetadata, r.Path, subject)
		store.Define(MethodMetadata, r.Method, subject)
		for i, p := range r.Params {
			if !p.explicit {
				p.Index = i
			}
			store.AppendParam(subject, p)
		}
	}
	return nil
}

// Controller declares T as a controller on DefaultMetadata and returns its
// type. T is the type the controller's constructor returns, usually a
// pointer. It panics on a route naming a missing method.
func Controller[T any](prefix string, routes ...RouteDefinition) reflect.Type {
	t := reflect.TypeFor[T]()
	if err := DeclareController(DefaultMetadata, t, prefix, routes...); err != nil {
		panic(err)
	}
	return t
}

// routeOrderMetadata keeps handler names in declaration order so routes
// are bound in the order they were written
const routeOrderMetadata = "route:order"

// providerDef is the value stored under InjectableMetadata
type providerDef struct {
	ctor  reflect.Value
	value reflect.Value
}

var errorType = reflect.TypeFor[error]()

// DeclareInjectable validates a constructor and records it as the factory
// for the type it returns. Constructors take their dependencies as
// parameters and return T or (T, error).
func DeclareInjectable(store *MetadataStore, ctor any) (reflect.Type, error) {
	v := reflect.ValueOf(ctor)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("injectable constructor must be a function, got %T", ctor)
	}
	ft := v.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("injectable constructor %s must not be variadic", ft)
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("injectable constructor %s must return T or (T, error)", ft)
	}

	t := ft.Out(0)
	store.Define(InjectableMetadata, providerDef{ctor: v}, TypeSubject(t))
	return t, nil
}

// Injectable registers ctor on DefaultMetadata and returns the provided type
func Injectable(ctor any) reflect.Type {
	t, err := DeclareInjectable(DefaultMetadata, ctor)
	if err != nil {
		panic(err)
	}
	return t
}

// ValueProvider supplies an already built instance as a provider
type ValueProvider struct {
	Type     reflect.Type
	Instance any
}

// Value provides instance under its dynamic type
func Value(instance any) ValueProvider {
	return ValueProvider{Type: reflect.TypeOf(instance), Instance: instance}
}

// ValueAs provides instance under T, which may be an interface type
func ValueAs[T any](instance T) ValueProvider {
	return ValueProvider{Type: reflect.TypeFor[T](), Instance: instance}
}

// ModuleOptions lists what a module contributes. Providers and
// Controllers accept a constructor function, a reflect.Type, or a
// ValueProvider.
type ModuleOptions struct {
	Imports     []reflect.Type
	Providers   []any
	Controllers []any
	Exports     []any
}

// ModuleRecord is the normalized form of ModuleOptions stored under
// ModuleMetadata
type ModuleRecord struct {
	Imports     []reflect.Type
	Providers   []reflect.Type
	Controllers []reflect.Type
	Exports     []reflect.Type
}

func normalizeProviders(store *MetadataStore, entries []any) ([]reflect.Type, error) {
	types := make([]reflect.Type, 0, len(entries))
	for _, entry := range entries {
		switch e := entry.(type) {
		case reflect.Type:
			types = append(types, e)
		case ValueProvider:
			if e.Type == nil || e.Instance == nil {
				return nil, fmt.Errorf("value provider must carry a non-nil instance")
			}
			store.Define(InjectableMetadata, providerDef{value: reflect.ValueOf(e.Instance)}, TypeSubject(e.Type))
			types = append(types, e.Type)
		default:
			if reflect.TypeOf(entry) == nil || reflect.TypeOf(entry).Kind() != reflect.Func {
				return nil, fmt.Errorf("unsupported provider %T", entry)
			}
			t, err := DeclareInjectable(store, entry)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
	}
	return types, nil
}

// DeclareModule records module metadata for t
func DeclareModule(store *MetadataStore, t reflect.Type, opts ModuleOptions) error {
	record := ModuleRecord{Imports: append([]reflect.Type(nil), opts.Imports...)}

	var err error
	if record.Providers, err = normalizeProviders(store, opts.Providers); err != nil {
		return fmt.Errorf("module %s providers: %w", ProviderName(t), err)
	}
	if record.Controllers, err = normalizeProviders(store, opts.Controllers); err != nil {
		return fmt.Errorf("module %s controllers: %w", ProviderName(t), err)
	}
	if record.Exports, err = normalizeProviders(store, opts.Exports); err != nil {
		return fmt.Errorf("module %s exports: %w", ProviderName(t), err)
	}

	store.Define(ModuleMetadata, record, TypeSubject(t))
	return nil
}

// Module declares T as a module on DefaultMetadata and returns its type
func Module[T any](opts ModuleOptions) reflect.Type {
	t := reflect.TypeFor[T]()
	if err := DeclareModule(DefaultMetadata, t, opts); err != nil {
		panic(err)
	}
	return t
}

// ProviderName is the cache key for a provider type
func ProviderName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
