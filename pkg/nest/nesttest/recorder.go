package nesttest

import (
	"encoding/json"
	"net/http"
)

// Recorder captures what a handler wrote. It implements
// nest.ResponseInterface.
type Recorder struct {
	Code      int
	HeaderMap http.Header
	BodyBytes []byte
	written   bool
}

func newRecorder() *Recorder {
	return &Recorder{Code: http.StatusOK, HeaderMap: make(http.Header)}
}

func (r *Recorder) Status() int { return r.Code }

func (r *Recorder) SetStatus(code int) {
	r.Code = code
}

func (r *Recorder) Header(key string) string { return r.HeaderMap.Get(key) }

func (r *Recorder) SetHeader(key, value string) { r.HeaderMap.Set(key, value) }

func (r *Recorder) JSON(code int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.HeaderMap.Set("Content-Type", "application/json; charset=utf-8")
	r.write(code, b)
	return nil
}

func (r *Recorder) String(code int, s string) error {
	r.HeaderMap.Set("Content-Type", "text/plain; charset=utf-8")
	r.write(code, []byte(s))
	return nil
}

func (r *Recorder) Blob(code int, contentType string, b []byte) error {
	r.HeaderMap.Set("Content-Type", contentType)
	r.write(code, b)
	return nil
}

func (r *Recorder) NoContent(code int) error {
	r.write(code, nil)
	return nil
}

func (r *Recorder) Written() bool { return r.written }

func (r *Recorder) write(code int, b []byte) {
	r.Code = code
	r.BodyBytes = append(r.BodyBytes, b...)
	r.written = true
}

// Body returns the response body as a string
func (r *Recorder) Body() string { return string(r.BodyBytes) }

// DecodeJSON unmarshals the response body into v
func (r *Recorder) DecodeJSON(v any) error {
	return json.Unmarshal(r.BodyBytes, v)
}

// WriteTo copies the recorded response to w
func (r *Recorder) WriteTo(w http.ResponseWriter) {
	for key, values := range r.HeaderMap {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(r.Code)
	_, _ = w.Write(r.BodyBytes)
}
