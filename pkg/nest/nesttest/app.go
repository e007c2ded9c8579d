package nesttest

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/toyz/mininest/pkg/nest"
)

// NewApp creates an application over an in-memory transport, loads module
// and initializes it. Extra setup such as middleware or pipes runs before
// Init. The application is closed when the test ends.
func NewApp(t testing.TB, module reflect.Type, setup func(*nest.Application), opts ...nest.Option) (*nest.Application, *Transport) {
	t.Helper()

	transport := NewTransport()
	app, err := nest.Create(module, transport, opts...)
	require.NoError(t, err)

	if setup != nil {
		setup(app)
	}
	require.NoError(t, app.Init(context.Background()))

	t.Cleanup(func() {
		_ = app.Close(context.Background())
	})
	return app, transport
}
