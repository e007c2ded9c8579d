package annotation

import (
	"fmt"
	"reflect"

	"github.com/toyz/mininest/pkg/nest"
)

type verbFunc func(path, handler string, params ...nest.ParamBinding) nest.RouteDefinition

var verbs = map[string]verbFunc{
	"Get":     nest.Get,
	"Post":    nest.Post,
	"Put":     nest.Put,
	"Delete":  nest.Delete,
	"Patch":   nest.Patch,
	"Options": nest.Options,
	"Head":    nest.Head,
	"All":     nest.All,
}

type paramFunc func(key ...string) nest.ParamBinding

var params = map[string]paramFunc{
	"Body":     nest.Body,
	"Query":    nest.Query,
	"Param":    nest.Param,
	"Headers":  nest.Headers,
	"Req":      func(...string) nest.ParamBinding { return nest.Req() },
	"Request":  func(...string) nest.ParamBinding { return nest.Req() },
	"Res":      func(...string) nest.ParamBinding { return nest.Res() },
	"Response": func(...string) nest.ParamBinding { return nest.Res() },
	"Ctx":      func(...string) nest.ParamBinding { return nest.Ctx() },
}

// Declare parses decorator lines and declares T as a controller on store.
// Exactly one line must carry @Controller; every other line declares a
// route.
func Declare[T any](store *nest.MetadataStore, src ...string) (reflect.Type, error) {
	t := reflect.TypeFor[T]()

	var (
		prefix        string
		hasController bool
		routes        []nest.RouteDefinition
	)
	for _, line := range src {
		decl, err := Parse(line)
		if err != nil {
			return nil, err
		}

		if decl.Handler == "" {
			for _, d := range decl.Decorators {
				if d.Name != "Controller" {
					return nil, fmt.Errorf("%s: @%s needs a handler method", line, d.Name)
				}
				prefix = d.Arg()
				hasController = true
			}
			continue
		}

		route, err := routeOf(decl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", line, err)
		}
		routes = append(routes, route)
	}

	if !hasController {
		return nil, fmt.Errorf("%s: missing @Controller declaration", nest.ProviderName(t))
	}
	if err := nest.DeclareController(store, t, prefix, routes...); err != nil {
		return nil, err
	}
	return t, nil
}

// MustDeclare is like Declare on nest.DefaultMetadata but panics on error
func MustDeclare[T any](src ...string) reflect.Type {
	t, err := Declare[T](nest.DefaultMetadata, src...)
	if err != nil {
		panic(err)
	}
	return t
}

func routeOf(decl *Declaration) (nest.RouteDefinition, error) {
	var verb verbFunc
	var path string
	for _, d := range decl.Decorators {
		v, ok := verbs[d.Name]
		if !ok {
			return nest.RouteDefinition{}, fmt.Errorf("unknown route decorator @%s", d.Name)
		}
		if verb != nil {
			return nest.RouteDefinition{}, fmt.Errorf("%s has more than one route decorator", decl.Handler)
		}
		verb, path = v, d.Arg()
	}

	bindings := make([]nest.ParamBinding, 0, len(decl.Params))
	for _, p := range decl.Params {
		bind, ok := params[p.Name]
		if !ok {
			return nest.RouteDefinition{}, fmt.Errorf("unknown parameter decorator @%s", p.Name)
		}
		bindings = append(bindings, bind(p.Args...))
	}
	return verb(path, decl.Handler, bindings...), nil
}
