package diagnostics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toyz/mininest/pkg/nest"
)

func newTestReporter(level Level) (*Reporter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewWithWriters(level, &out, &errOut, false), &out, &errOut
}

func TestReporter_Routes(t *testing.T) {
	r, out, _ := newTestReporter(Normal)
	r.Routes(nest.RouteTable{
		{ControllerName: "UserController", Method: "GET", Path: "/users", HandlerName: "FindAll"},
		{ControllerName: "HealthController", Method: "GET", Path: "/health", HandlerName: "Check"},
		{ControllerName: "UserController", Method: "DELETE", Path: "/users/:id", HandlerName: "Remove"},
	})

	want := "\n[HealthController]\n" +
		"  GET    /health -> Check\n" +
		"\n[UserController]\n" +
		"  GET    /users -> FindAll\n" +
		"  DELETE /users/:id -> Remove\n" +
		"\n3 routes\n"
	assert.Equal(t, want, out.String())
}

func TestReporter_Levels(t *testing.T) {
	tests := []struct {
		level   Level
		out     []string
		missing []string
		errOut  string
	}{
		{Silent, nil, []string{"mininest: up", "done", "extra"}, ""},
		{Errors, nil, []string{"mininest: up", "done"}, "[ERROR] broken\n"},
		{Normal, []string{"mininest: up", "✓ done"}, []string{"extra"}, "[ERROR] broken\n"},
		{Verbose, []string{"mininest: up", "✓ done", "extra"}, nil, "[ERROR] broken\n"},
	}
	for _, tt := range tests {
		r, out, errOut := newTestReporter(tt.level)
		r.Header("up")
		r.Success("done")
		r.Verbose("extra")
		r.Error("broken")

		for _, s := range tt.out {
			assert.Contains(t, out.String(), s)
		}
		for _, s := range tt.missing {
			assert.NotContains(t, out.String(), s)
		}
		assert.Equal(t, tt.errOut, errOut.String())
	}
}

func TestShouldUseColors(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("FORCE_COLOR", "1")
	assert.False(t, shouldUseColors())

	t.Setenv("NO_COLOR", "")
	assert.True(t, shouldUseColors())

	t.Setenv("FORCE_COLOR", "")
	t.Setenv("TERM", "dumb")
	assert.False(t, shouldUseColors())
}
