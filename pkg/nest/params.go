package nest

import (
	"context"
	"reflect"
	"sort"
	"strings"
)

// ParamSource is where a handler argument is extracted from
type ParamSource string

const (
	SourceBody     ParamSource = "body"
	SourceQuery    ParamSource = "query"
	SourceParam    ParamSource = "param"
	SourceHeaders  ParamSource = "headers"
	SourceRequest  ParamSource = "request"
	SourceResponse ParamSource = "response"
	SourceContext  ParamSource = "context"
)

// ParamBinding describes how one handler argument is populated
type ParamBinding struct {
	Index  int
	Source ParamSource
	Key    string
	// Pipes run after the global pipes for this argument only
	Pipes []PipeEntry

	explicit bool
}

// At pins the binding to a parameter index instead of its position in
// the route declaration
func (b ParamBinding) At(index int) ParamBinding {
	b.Index = index
	b.explicit = true
	return b
}

// With attaches pipes that run after the global pipes for this argument
func (b ParamBinding) With(pipes ...PipeEntry) ParamBinding {
	b.Pipes = append(append([]PipeEntry(nil), b.Pipes...), pipes...)
	return b
}

func newBinding(source ParamSource, key []string) ParamBinding {
	b := ParamBinding{Source: source}
	if len(key) > 0 {
		b.Key = key[0]
	}
	return b
}

// Body binds the decoded request body, or one of its fields when a key is given
func Body(key ...string) ParamBinding { return newBinding(SourceBody, key) }

// Query binds the query string as a QueryMap, or one value when a key is given
func Query(key ...string) ParamBinding { return newBinding(SourceQuery, key) }

// Param binds the path parameters, or one of them when a key is given
func Param(key ...string) ParamBinding { return newBinding(SourceParam, key) }

// Headers binds the request headers (lower-cased names), or one header
func Headers(key ...string) ParamBinding { return newBinding(SourceHeaders, key) }

// Req binds the RequestContext
func Req() ParamBinding { return newBinding(SourceRequest, nil) }

// Res binds the ResponseInterface. A handler that writes through it
// disables automatic serialization of its return value.
func Res() ParamBinding { return newBinding(SourceResponse, nil) }

// Ctx binds the per-request context.Context, which carries the request deadline
func Ctx() ParamBinding { return newBinding(SourceContext, nil) }

// ArgumentMetadata is handed to every pipe alongside the value
type ArgumentMetadata struct {
	Type       ParamSource
	Data       string
	Controller string
	Method     string
	// Metatype is the declared Go type of the handler parameter
	Metatype reflect.Type
}

// sortBindings orders bindings by their recorded index. Append order of
// parameter metadata carries no meaning.
func sortBindings(bindings []ParamBinding) []ParamBinding {
	sorted := append([]ParamBinding(nil), bindings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})
	return sorted
}

// extractParam pulls the raw value for a binding out of the request.
// The second result is false when the value is absent.
func extractParam(ctx context.Context, rc RequestContext, b ParamBinding) (any, bool, error) {
	switch b.Source {
	case SourceRequest:
		return rc, true, nil
	case SourceResponse:
		return rc.Response(), true, nil
	case SourceContext:
		return ctx, true, nil
	case SourceBody:
		body, err := rc.Body()
		if err != nil {
			return nil, false, ErrBadRequest("invalid request body: " + err.Error())
		}
		if b.Key == "" {
			return body, body != nil, nil
		}
		fields, ok := body.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		v, ok := fields[b.Key]
		return v, ok && v != nil, nil
	case SourceQuery:
		query := rc.QueryParams()
		if b.Key == "" {
			return NewQueryMap(query), true, nil
		}
		values, ok := query[b.Key]
		if !ok || len(values) == 0 {
			return nil, false, nil
		}
		if len(values) == 1 {
			return values[0], true, nil
		}
		return append([]string(nil), values...), true, nil
	case SourceParam:
		params := rc.Params()
		if b.Key == "" {
			return params, true, nil
		}
		v, ok := params[b.Key]
		return v, ok, nil
	case SourceHeaders:
		headers := rc.Headers()
		if b.Key == "" {
			return headers, true, nil
		}
		v, ok := headers[strings.ToLower(b.Key)]
		return v, ok, nil
	}
	return nil, false, nil
}
