package nest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeBody parses a raw request body the way every adapter exposes it
// through RequestContext.Body: JSON documents decode to map[string]any
// (or []any, string, float64...), url-encoded forms to map[string]any of
// strings, anything else is returned as a string. An empty body is nil.
func DecodeBody(contentType string, raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/json", "":
		var body any
		if err := json.Unmarshal(raw, &body); err != nil {
			if mediaType == "" {
				return string(raw), nil
			}
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		return body, nil
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, fmt.Errorf("decode form body: %w", err)
		}
		form := make(map[string]any, len(values))
		for key, vs := range values {
			if len(vs) == 1 {
				form[key] = vs[0]
			} else {
				form[key] = vs
			}
		}
		return form, nil
	default:
		return string(raw), nil
	}
}

// BindBody decodes a raw request body into v
func BindBody(contentType string, raw []byte, v any) error {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || mediaType == "" {
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("bind json body: %w", err)
		}
		return nil
	}

	body, err := DecodeBody(contentType, raw)
	if err != nil {
		return err
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(body)
}

// LowerHeaders flattens headers to lower-cased names, joining repeated
// values with ", "
func LowerHeaders(header map[string][]string) map[string]string {
	out := make(map[string]string, len(header))
	for key, values := range header {
		lower := strings.ToLower(key)
		if existing, ok := out[lower]; ok {
			values = append([]string{existing}, values...)
		}
		out[lower] = strings.Join(values, ", ")
	}
	return out
}
