// Package apidocs attaches documentation metadata to controllers and
// builds a JSON document from it and the route table.
package apidocs

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/toyz/mininest/pkg/nest"
)

const (
	TagMetadata       = "api:tag"
	OperationMetadata = "api:operation"
)

// TagOptions groups a controller's operations
type TagOptions struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ResponseDoc struct {
	Description string `json:"description"`
}

// OperationOptions describes one route handler
type OperationOptions struct {
	Summary     string                 `json:"summary"`
	Description string                 `json:"description,omitempty"`
	Deprecated  bool                   `json:"deprecated,omitempty"`
	Responses   map[string]ResponseDoc `json:"responses,omitempty"`
}

// ApiTag attaches a tag to controller type t
func ApiTag(store *nest.MetadataStore, t reflect.Type, opts TagOptions) {
	nest.DefineClassMetadata(store, TagMetadata, opts, t)
}

// ApiOperation describes method of controller type t
func ApiOperation(store *nest.MetadataStore, t reflect.Type, method string, opts OperationOptions) {
	nest.DefineMethodMetadata(store, OperationMetadata, opts, t, method)
}

// TagOf returns the tag declared on t
func TagOf(store *nest.MetadataStore, t reflect.Type) (TagOptions, bool) {
	v, ok := store.Get(TagMetadata, nest.TypeSubject(t))
	if !ok {
		return TagOptions{}, false
	}
	tag, ok := v.(TagOptions)
	return tag, ok
}

// OperationOf returns the operation declared on method of t
func OperationOf(store *nest.MetadataStore, t reflect.Type, method string) (OperationOptions, bool) {
	v, ok := store.Get(OperationMetadata, nest.MethodSubject(t, method))
	if !ok {
		return OperationOptions{}, false
	}
	op, ok := v.(OperationOptions)
	return op, ok
}

// PathItem is one documented operation in a Document
type PathItem struct {
	Summary     string                 `json:"summary"`
	Description string                 `json:"description,omitempty"`
	Deprecated  bool                   `json:"deprecated,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Responses   map[string]ResponseDoc `json:"responses"`
}

// Document is the generated API description
type Document struct {
	Title       string                         `json:"title"`
	Description string                         `json:"description"`
	Version     string                         `json:"version"`
	Tags        []TagOptions                   `json:"tags"`
	Paths       map[string]map[string]PathItem `json:"paths"`
}

// Generate documents every route whose handler carries an operation.
// Tags come from the controller instances in order.
func Generate(store *nest.MetadataStore, controllers []any, routes nest.RouteTable) Document {
	doc := Document{
		Title:       "Mini Nest API",
		Description: "Example API served by mininest",
		Version:     "1.0.0",
		Tags:        []TagOptions{},
		Paths:       make(map[string]map[string]PathItem),
	}

	for _, c := range controllers {
		if tag, ok := TagOf(store, reflect.TypeOf(c)); ok {
			doc.Tags = append(doc.Tags, tag)
		}
	}

	for _, r := range routes {
		op, ok := OperationOf(store, r.ControllerType, r.HandlerName)
		if !ok {
			continue
		}
		tagName := "default"
		if tag, ok := TagOf(store, r.ControllerType); ok {
			tagName = tag.Name
		}
		responses := op.Responses
		if len(responses) == 0 {
			responses = map[string]ResponseDoc{"200": {Description: "Success"}}
		}

		if doc.Paths[r.Path] == nil {
			doc.Paths[r.Path] = make(map[string]PathItem)
		}
		doc.Paths[r.Path][strings.ToLower(r.Method)] = PathItem{
			Summary:     op.Summary,
			Description: op.Description,
			Deprecated:  op.Deprecated,
			Tags:        []string{tagName},
			Responses:   responses,
		}
	}
	return doc
}

// Handler serves doc as JSON
func Handler(doc Document) nest.HandlerFunc {
	return func(ctx nest.RequestContext) error {
		return ctx.Response().JSON(http.StatusOK, doc)
	}
}
