package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeModule struct {
	name     string
	priority int
	err      error
	order    *[]string
}

func (m *fakeModule) Name() string  { return m.name }
func (m *fakeModule) Priority() int { return m.priority }
func (m *fakeModule) Init(ctx *ModuleContext) error {
	*m.order = append(*m.order, m.name)
	return m.err
}

func withRegistry(t *testing.T) {
	saved := moduleRegistry
	moduleRegistry = make(map[string]Module)
	t.Cleanup(func() { moduleRegistry = saved })
}

func TestInitModulesByPriority(t *testing.T) {
	withRegistry(t)
	var order []string
	Register(&fakeModule{name: "common", priority: 100, order: &order})
	Register(&fakeModule{name: "redemption", priority: 10, order: &order})
	Register(&fakeModule{name: "audit", priority: 10, order: &order})

	assert.NoError(t, InitModules(&ModuleContext{}))
	assert.Equal(t, []string{"audit", "redemption", "common"}, order)
}

func TestInitModulesStopsOnError(t *testing.T) {
	withRegistry(t)
	var order []string
	Register(&fakeModule{name: "a", priority: 1, err: errors.New("no db"), order: &order})
	Register(&fakeModule{name: "b", priority: 2, order: &order})

	err := InitModules(&ModuleContext{})
	assert.ErrorContains(t, err, "init module a")
	assert.Equal(t, []string{"a"}, order)
}

func TestRegisterTwicePanics(t *testing.T) {
	withRegistry(t)
	var order []string
	Register(&fakeModule{name: "a", order: &order})
	assert.Panics(t, func() { Register(&fakeModule{name: "a", order: &order}) })
}
