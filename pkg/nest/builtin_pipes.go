package nest

import (
	"context"
	"strconv"

	"github.com/google/uuid"
)

// Built-in conversion pipes. Each converts a string value and passes any
// other value through untouched; a string that does not parse is rejected
// with a ValidationError.
var (
	ParseIntPipe   = PipeValue(PipeFunc(parseInt))
	ParseFloatPipe = PipeValue(PipeFunc(parseFloat))
	ParseBoolPipe  = PipeValue(PipeFunc(parseBool))
	ParseUUIDPipe  = PipeValue(PipeFunc(parseUUID))
)

func fieldName(meta ArgumentMetadata) string {
	if meta.Data != "" {
		return meta.Data
	}
	return string(meta.Type)
}

func parseInt(_ context.Context, value any, meta ArgumentMetadata) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, NewValidationError(fieldName(meta), "numeric string is expected")
	}
	return n, nil
}

func parseFloat(_ context.Context, value any, meta ArgumentMetadata) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, NewValidationError(fieldName(meta), "numeric string is expected")
	}
	return f, nil
}

func parseBool(_ context.Context, value any, meta ArgumentMetadata) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, NewValidationError(fieldName(meta), "boolean string is expected")
	}
	return b, nil
}

func parseUUID(_ context.Context, value any, meta ArgumentMetadata) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, NewValidationError(fieldName(meta), "uuid is expected")
	}
	return id, nil
}
