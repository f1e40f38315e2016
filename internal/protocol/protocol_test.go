package protocol

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jwwelbor/marcus/internal/config"
	"github.com/jwwelbor/marcus/internal/core"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/provider"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	c := core.New(config.Defaults(), nil, provider.NewInMemory(), nil)
	return New(c)
}

func TestUnknownOperationIsRejected(t *testing.T) {
	d := newTestDispatcher(t)
	env := d.Dispatch(context.Background(), Request{Operation: "not_a_real_op", Role: models.RoleAgent})
	require.False(t, env.OK)
}

func TestObserverCannotRegisterAgent(t *testing.T) {
	d := newTestDispatcher(t)
	params, _ := json.Marshal(registerAgentParams{AgentID: "x", Role: "agent"})
	env := d.Dispatch(context.Background(), Request{Operation: "register_agent", Role: models.RoleObserver, Params: params})
	require.False(t, env.OK)
}

func TestObserverCanListAgents(t *testing.T) {
	d := newTestDispatcher(t)
	env := d.Dispatch(context.Background(), Request{Operation: "list_agents", Role: models.RoleObserver})
	require.True(t, env.OK)
}

func TestHandlerPanicIsRecoveredAsPersistenceFailure(t *testing.T) {
	d := newTestDispatcher(t)
	operations["__panic_for_test__"] = operation{
		handler: func(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, error) {
			panic("boom")
		},
	}
	defer delete(operations, "__panic_for_test__")

	env := d.Dispatch(context.Background(), Request{Operation: "__panic_for_test__", Role: models.RoleAdmin})
	require.False(t, env.OK)
	require.Equal(t, "PersistenceFailure", string(env.ErrorKind))
}

func TestRegisterAgentThenRequestNextTaskRoundTrips(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.core.AddTask(&models.Task{Name: "A", Status: models.StatusTodo})
	require.NoError(t, err)

	regParams, _ := json.Marshal(registerAgentParams{AgentID: "agent-1", Role: "agent"})
	env := d.Dispatch(ctx, Request{Operation: "register_agent", Role: models.RoleAgent, Params: regParams})
	require.True(t, env.OK)

	reqParams, _ := json.Marshal(agentIDParams{AgentID: "agent-1"})
	env = d.Dispatch(ctx, Request{Operation: "request_next_task", Role: models.RoleAgent, Params: reqParams})
	require.True(t, env.OK)
}
