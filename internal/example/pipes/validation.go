// Package pipes holds the example's argument pipes
package pipes

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/toyz/mininest/pkg/nest"
)

// ValidationPipe rejects nil and empty-string values, turns numeric
// strings into numbers when the parameter is numeric (or untyped), and
// decodes and validates map bodies bound to struct parameters.
type ValidationPipe struct {
	validate *validator.Validate
}

func NewValidationPipe() *ValidationPipe {
	return &ValidationPipe{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// FieldError is one failed struct constraint
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func (p *ValidationPipe) Transform(_ context.Context, value any, meta nest.ArgumentMetadata) (any, error) {
	field := meta.Data
	if field == "" {
		field = string(meta.Type)
	}

	switch v := value.(type) {
	case nil:
		return nil, nest.NewValidationError(field, "value must not be empty")
	case string:
		if v == "" {
			return nil, nest.NewValidationError(field, "value must not be empty")
		}
		return p.number(field, v, meta.Metatype)
	case map[string]any:
		return p.structure(field, v, meta.Metatype)
	}
	return value, nil
}

func (p *ValidationPipe) number(field, s string, t reflect.Type) (any, error) {
	if t == nil {
		return s, nil
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return nil, nest.NewValidationError(field, "numeric string is expected")
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return nil, nest.NewValidationError(field, "numeric string is expected")
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return nil, nest.NewValidationError(field, "numeric string is expected")
		}
		return reflect.ValueOf(f).Convert(t).Interface(), nil
	case reflect.Interface:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	}
	return s, nil
}

func (p *ValidationPipe) structure(field string, m map[string]any, t reflect.Type) (any, error) {
	if t == nil {
		return m, nil
	}
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return m, nil
	}

	out := reflect.New(st)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(m); err != nil {
		return nil, nest.NewValidationError(field, err.Error())
	}

	if err := p.validate.Struct(out.Interface()); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: jsonName(st, fe.StructField()), Rule: fe.Tag()})
		}
		return nil, &nest.ValidationError{Field: field, Message: "invalid " + st.Name(), Details: details}
	}

	if t.Kind() == reflect.Pointer {
		return out.Interface(), nil
	}
	return out.Elem().Interface(), nil
}

func jsonName(t reflect.Type, name string) string {
	f, ok := t.FieldByName(name)
	if !ok {
		return name
	}
	tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if tag == "" || tag == "-" {
		return name
	}
	return tag
}

// ParseJSONPipe decodes string values as JSON
type ParseJSONPipe struct{}

func NewParseJSONPipe() *ParseJSONPipe {
	return &ParseJSONPipe{}
}

func (ParseJSONPipe) Transform(_ context.Context, value any, meta nest.ArgumentMetadata) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		field := meta.Data
		if field == "" {
			field = string(meta.Type)
		}
		return nil, nest.NewValidationError(field, "invalid JSON string")
	}
	return out, nil
}
