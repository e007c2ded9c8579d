package nest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
)

// RouterExplorer turns controller metadata into transport routes
type RouterExplorer struct {
	store     *MetadataStore
	container *Container
	pipes     *PipeRegistry
	logger    *zap.Logger
	timeout   time.Duration
}

// NewRouterExplorer creates an explorer. A zero timeout disables the
// per-request deadline.
func NewRouterExplorer(store *MetadataStore, container *Container, pipes *PipeRegistry, logger *zap.Logger, timeout time.Duration) *RouterExplorer {
	if store == nil {
		store = DefaultMetadata
	}
	if pipes == nil {
		pipes = NewPipeRegistry(store, container)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouterExplorer{
		store:     store,
		container: container,
		pipes:     pipes,
		logger:    logger,
		timeout:   timeout,
	}
}

// routeTarget is everything a request handler needs, computed once at
// explore time
type routeTarget struct {
	controllerName string
	handlerName    string
	method         reflect.Value
	bindings       []ParamBinding
}

// Explore binds every declared route of controllers on transport and
// returns the route table in binding order
func (e *RouterExplorer) Explore(transport WebServerInterface, controllers []reflect.Type) (RouteTable, error) {
	var routes RouteTable
	claimed := make(map[string]map[string]bool)
	explored := make(map[reflect.Type]bool)
	for _, ct := range controllers {
		// A controller listed by several modules is one singleton; bind it once.
		if explored[ct] {
			e.logger.Debug("controller already explored", zap.String("controller", ProviderName(ct)))
			continue
		}
		explored[ct] = true

		records, err := e.exploreController(transport, ct, claimed)
		if err != nil {
			return nil, err
		}
		routes = append(routes, records...)
	}
	return routes, nil
}

func (e *RouterExplorer) exploreController(transport WebServerInterface, ct reflect.Type, claimed map[string]map[string]bool) (RouteTable, error) {
	instance, err := e.container.Get(ct)
	if err != nil {
		return nil, fmt.Errorf("controller %s: %w", ProviderName(ct), err)
	}

	prefix := ""
	if v, ok := e.store.Get(ControllerMetadata, TypeSubject(ct)); ok {
		prefix, _ = v.(string)
	}
	controllerName := controllerName(ct)
	value := reflect.ValueOf(instance)

	var routes RouteTable
	for _, name := range e.handlerNames(ct, value.Type()) {
		subject := MethodSubject(ct, name)
		verb, ok := e.store.Get(MethodMetadata, subject)
		if !ok {
			continue
		}
		method := strings.ToUpper(fmt.Sprint(verb))
		path := ""
		if v, ok := e.store.Get(RouteMetadata, subject); ok {
			path, _ = v.(string)
		}
		fullPath := JoinRoutePath(prefix, path)

		if err := claim(claimed, method, fullPath); err != nil {
			return nil, &RouteDefinitionError{Controller: controllerName, Method: name, Reason: err.Error()}
		}

		target, err := e.newTarget(controllerName, name, fullPath, value.MethodByName(name), e.store.Params(subject))
		if err != nil {
			return nil, err
		}

		routes = append(routes, RouteRecord{
			Controller:     instance,
			ControllerType: ct,
			ControllerName: controllerName,
			Path:           fullPath,
			Method:         method,
			Handler:        target.method,
			HandlerName:    name,
		})
		transport.RegisterRoute(method, fullPath, e.createHandler(target))

		e.logger.Info(fmt.Sprintf("Mapped {%s} route '%s'", method, fullPath),
			zap.String("controller", controllerName),
			zap.String("handler", name),
		)
	}
	return routes, nil
}

// claim records method+path, rejecting a second handler for the same
// pair. ALL overlaps every method.
func claim(claimed map[string]map[string]bool, method, path string) error {
	methods, ok := claimed[path]
	if !ok {
		methods = make(map[string]bool)
		claimed[path] = methods
	}
	if methods[method] || methods[MethodAll] || (method == MethodAll && len(methods) > 0) {
		return fmt.Errorf("duplicate route {%s} %s", method, path)
	}
	methods[method] = true
	return nil
}

// handlerNames lists the instance's methods, declared routes first in
// declaration order, then any remaining methods by name
func (e *RouterExplorer) handlerNames(ct, it reflect.Type) []string {
	available := make(map[string]bool, it.NumMethod())
	for i := 0; i < it.NumMethod(); i++ {
		available[it.Method(i).Name] = true
	}

	var names []string
	seen := make(map[string]bool)
	if v, ok := e.store.Get(routeOrderMetadata, TypeSubject(ct)); ok {
		order, _ := v.([]string)
		for _, name := range order {
			if available[name] && !seen[name] {
				names = append(names, name)
				seen[name] = true
			}
		}
	}

	var rest []string
	for name := range available {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func (e *RouterExplorer) newTarget(controller, handler, path string, method reflect.Value, bindings []ParamBinding) (routeTarget, error) {
	mt := method.Type()
	if mt.IsVariadic() {
		return routeTarget{}, &RouteDefinitionError{Controller: controller, Method: handler, Reason: "variadic handlers are not supported"}
	}
	switch {
	case mt.NumOut() <= 1:
	case mt.NumOut() == 2 && mt.Out(1) == errorType:
	default:
		return routeTarget{}, &RouteDefinitionError{Controller: controller, Method: handler, Reason: "handlers return (), (T), (error) or (T, error)"}
	}

	names := RoutePath(path).ParamNames()
	sorted := sortBindings(bindings)
	for _, b := range sorted {
		if b.Index < 0 || b.Index >= mt.NumIn() {
			return routeTarget{}, &RouteDefinitionError{
				Controller: controller,
				Method:     handler,
				Reason:     fmt.Sprintf("%s binding at index %d but handler takes %d parameters", b.Source, b.Index, mt.NumIn()),
			}
		}
		if b.Source == SourceParam && b.Key != "" && !slices.Contains(names, b.Key) {
			return routeTarget{}, &RouteDefinitionError{
				Controller: controller,
				Method:     handler,
				Reason:     fmt.Sprintf("param %q is not in route path %s", b.Key, path),
			}
		}
	}

	return routeTarget{
		controllerName: controller,
		handlerName:    handler,
		method:         method,
		bindings:       sorted,
	}, nil
}

func (e *RouterExplorer) createHandler(target routeTarget) HandlerFunc {
	return func(rc RequestContext) error {
		ctx := rc.Context()
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
			rc.SetContext(ctx)
		}

		args, err := e.resolveArgs(ctx, rc, target)
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return &TimeoutError{Stage: "handler", Cause: err}
		}

		result, err := invoke(target, args)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && errors.Is(err, context.DeadlineExceeded) {
				return &TimeoutError{Stage: "handler", Cause: err}
			}
			return err
		}

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !rc.Response().Written() {
			return &TimeoutError{Stage: "handler", Cause: ctx.Err()}
		}
		return send(rc.Response(), result)
	}
}

// resolveArgs builds the argument list in index order. Parameters
// without a binding, or whose value is absent, receive their zero value.
func (e *RouterExplorer) resolveArgs(ctx context.Context, rc RequestContext, target routeTarget) ([]reflect.Value, error) {
	mt := target.method.Type()
	args := make([]reflect.Value, mt.NumIn())
	for i := range args {
		args[i] = reflect.Zero(mt.In(i))
	}

	for _, b := range target.bindings {
		raw, present, err := extractParam(ctx, rc, b)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}

		paramType := mt.In(b.Index)
		value, err := e.pipes.ApplyPipes(ctx, raw, b.Pipes, ArgumentMetadata{
			Type:       b.Source,
			Data:       b.Key,
			Controller: target.controllerName,
			Method:     target.handlerName,
			Metatype:   paramType,
		})
		if err != nil {
			return nil, err
		}

		arg, err := adaptArg(value, paramType)
		if err != nil {
			field := b.Key
			if field == "" {
				field = string(b.Source)
			}
			return nil, NewValidationError(field, err.Error())
		}
		args[b.Index] = arg
	}
	return args, nil
}

var (
	contextType    = reflect.TypeFor[context.Context]()
	requestCtxType = reflect.TypeFor[RequestContext]()
)

// adaptArg fits a resolved value to the handler parameter type
func adaptArg(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if t == contextType || t == requestCtxType {
		return reflect.Value{}, fmt.Errorf("cannot use %T as %s", value, t)
	}
	if (isNumber(v.Kind()) && isNumber(t.Kind())) || (v.Kind() == t.Kind() && v.Type().ConvertibleTo(t)) {
		return v.Convert(t), nil
	}

	if q, ok := value.(QueryMap); ok {
		value = q.flatten()
	}

	out := reflect.New(t)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := decoder.Decode(value); err != nil {
		return reflect.Value{}, fmt.Errorf("cannot use %T as %s: %w", value, t, err)
	}
	return out.Elem(), nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// invoke calls the handler and splits its results. Returned errors and
// panics both become a HandlerExecutionError.
func invoke(target routeTarget, args []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", r)
			}
			result = nil
			err = cause
		}
		if err != nil {
			var execErr *HandlerExecutionError
			if !errors.As(err, &execErr) {
				err = &HandlerExecutionError{Controller: target.controllerName, Method: target.handlerName, Cause: err}
			}
		}
	}()

	out := target.method.Call(args)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			if out[0].IsNil() {
				return nil, nil
			}
			return nil, out[0].Interface().(error)
		}
		return resultOf(out[0]), nil
	default:
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return resultOf(out[0]), nil
	}
}

func resultOf(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

// send serializes a handler result unless the handler already responded
func send(res ResponseInterface, result any) error {
	if res.Written() || result == nil {
		return nil
	}
	switch r := result.(type) {
	case *Response:
		code := r.StatusCode
		if code == 0 {
			code = http.StatusOK
		}
		if r.Body == nil {
			return res.NoContent(code)
		}
		return res.JSON(code, r.Body)
	case string:
		return res.String(http.StatusOK, r)
	case []byte:
		return res.Blob(http.StatusOK, "application/octet-stream", r)
	default:
		return res.JSON(http.StatusOK, r)
	}
}

func controllerName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
