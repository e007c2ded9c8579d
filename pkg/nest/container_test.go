package nest_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toyz/mininest/pkg/nest"
)

type repository struct{ name string }

func newRepository() *repository { return &repository{name: "repo"} }

type service struct{ repo *repository }

func newService(repo *repository) *service { return &service{repo: repo} }

type selfDependent struct{}

func newSelfDependent(*selfDependent) *selfDependent { return &selfDependent{} }

type cycleA struct{}
type cycleB struct{}

func newCycleA(*cycleB) *cycleA { return &cycleA{} }
func newCycleB(*cycleA) *cycleB { return &cycleB{} }

type greeter interface{ Greet() string }

type needsGreeter struct{ g greeter }

func newNeedsGreeter(g greeter) *needsGreeter { return &needsGreeter{g: g} }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type failing struct{}

var errBoom = errors.New("boom")

func newFailing() (*failing, error) { return nil, errBoom }

func declare(t *testing.T, store *nest.MetadataStore, ctors ...any) {
	t.Helper()
	for _, ctor := range ctors {
		_, err := nest.DeclareInjectable(store, ctor)
		require.NoError(t, err)
	}
}

func TestContainer_Singleton(t *testing.T) {
	store := nest.NewMetadataStore()
	declare(t, store, newRepository, newService)
	c := nest.NewContainer(store)

	first, err := nest.Resolve[*service](c)
	require.NoError(t, err)
	second, err := nest.Resolve[*service](c)
	require.NoError(t, err)
	assert.Same(t, first, second)

	repo, err := nest.Resolve[*repository](c)
	require.NoError(t, err)
	assert.Same(t, repo, first.repo)
}

func TestContainer_AddProviderIsIdempotent(t *testing.T) {
	store := nest.NewMetadataStore()
	declare(t, store, newRepository)
	c := nest.NewContainer(store)

	require.NoError(t, c.AddProvider(nest.TypeOf[*repository]()))
	first, _ := c.Get(nest.TypeOf[*repository]())
	require.NoError(t, c.AddProvider(nest.TypeOf[*repository]()))
	second, _ := c.Get(nest.TypeOf[*repository]())

	assert.Same(t, first, second)
	assert.Len(t, c.Instances(), 1)
}

func TestContainer_DirectSelfDependency(t *testing.T) {
	store := nest.NewMetadataStore()
	declare(t, store, newSelfDependent)
	c := nest.NewContainer(store)

	_, err := c.Get(nest.TypeOf[*selfDependent]())
	require.Error(t, err)
	assert.True(t, nest.IsCircularDependency(err))

	var cycle *nest.CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, "*nest_test.selfDependent", cycle.Provider)
	assert.False(t, c.Has(nest.TypeOf[*selfDependent]()))
}

func TestContainer_IndirectCycle(t *testing.T) {
	store := nest.NewMetadataStore()
	declare(t, store, newCycleA, newCycleB)
	c := nest.NewContainer(store)

	_, err := c.Get(nest.TypeOf[*cycleA]())

	var cycle *nest.CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"*nest_test.cycleA", "*nest_test.cycleB", "*nest_test.cycleA"}, cycle.Chain)
	assert.Contains(t, err.Error(), "*nest_test.cycleA -> *nest_test.cycleB -> *nest_test.cycleA")
}

func TestContainer_ProviderNotFound(t *testing.T) {
	store := nest.NewMetadataStore()
	declare(t, store, newNeedsGreeter)
	c := nest.NewContainer(store)

	_, err := c.Get(nest.TypeOf[*needsGreeter]())
	require.Error(t, err)
	assert.True(t, nest.IsProviderNotFound(err))

	var notFound *nest.ProviderNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nest_test.greeter", notFound.Provider)
	assert.Equal(t, "*nest_test.needsGreeter", notFound.RequiredBy)
}

func TestContainer_ValueProviderForInterface(t *testing.T) {
	store := nest.NewMetadataStore()
	declare(t, store, newNeedsGreeter)
	require.NoError(t, nest.DeclareModule(store, nest.TypeOf[struct{}](), nest.ModuleOptions{
		Providers: []any{nest.ValueAs[greeter](englishGreeter{})},
	}))
	c := nest.NewContainer(store)

	n, err := nest.Resolve[*needsGreeter](c)
	require.NoError(t, err)
	assert.Equal(t, "hello", n.g.Greet())
}

func TestContainer_ConstructorError(t *testing.T) {
	store := nest.NewMetadataStore()
	declare(t, store, newFailing)
	c := nest.NewContainer(store)

	_, err := c.Get(nest.TypeOf[*failing]())
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, c.Has(nest.TypeOf[*failing]()))
}

func TestContainer_ZeroValueStructPointer(t *testing.T) {
	c := nest.NewContainer(nest.NewMetadataStore())

	repo, err := nest.Resolve[*repository](c)
	require.NoError(t, err)
	assert.NotNil(t, repo)
	assert.Empty(t, repo.name)

	_, err = c.Get(nest.TypeOf[repository]())
	assert.True(t, nest.IsProviderNotFound(err))
}

func TestContainer_InstancesAndClear(t *testing.T) {
	store := nest.NewMetadataStore()
	declare(t, store, newRepository, newService)
	c := nest.NewContainer(store)

	svc, err := nest.Resolve[*service](c)
	require.NoError(t, err)

	instances := c.Instances()
	require.Len(t, instances, 2)
	assert.Same(t, svc.repo, instances[0])
	assert.Same(t, svc, instances[1])

	c.Clear()
	assert.Empty(t, c.Instances())
	assert.False(t, c.Has(nest.TypeOf[*service]()))

	again, err := nest.Resolve[*service](c)
	require.NoError(t, err)
	assert.NotSame(t, svc, again)
}

func TestDeclareInjectable_RejectsBadConstructors(t *testing.T) {
	store := nest.NewMetadataStore()

	for name, ctor := range map[string]any{
		"not a func":       42,
		"variadic":         func(...int) *repository { return nil },
		"no results":       func() {},
		"second not error": func() (*repository, int) { return nil, 0 },
	} {
		t.Run(name, func(t *testing.T) {
			_, err := nest.DeclareInjectable(store, ctor)
			assert.Error(t, err)
		})
	}
}
