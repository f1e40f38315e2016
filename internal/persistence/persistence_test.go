package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jwwelbor/marcus/internal/config"
	"github.com/stretchr/testify/require"
)

func TestKeyHelpers(t *testing.T) {
	require.Equal(t, "tasks/42", TaskKey(42))
	require.Equal(t, "leases/42", LeaseKey(42))
	require.Equal(t, "assignments/agent-a", AssignmentKey("agent-a"))
	require.Equal(t, "decisions/42/d1", DecisionKey(42, "d1"))
	require.Equal(t, "decisions/42/", DecisionPrefix(42))

	id, ok := TaskIDFromDecisionKey("decisions/42/d1")
	require.True(t, ok)
	require.Equal(t, int64(42), id)

	_, ok = TaskIDFromDecisionKey("tasks/42")
	require.False(t, ok)
}

func newBoltStoreForTest(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStorePutGetDelete(t *testing.T) {
	s := newBoltStoreForTest(t)

	require.NoError(t, s.Put(TaskKey(1), []byte(`{"id":1}`)))

	v, ok, err := s.Get(TaskKey(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"id":1}`, string(v))

	require.NoError(t, s.Delete(TaskKey(1)))
	_, ok, err = s.Get(TaskKey(1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltStoreScanPrefix(t *testing.T) {
	s := newBoltStoreForTest(t)

	require.NoError(t, s.Put(DecisionKey(1, "d1"), []byte("first")))
	require.NoError(t, s.Put(DecisionKey(1, "d2"), []byte("second")))
	require.NoError(t, s.Put(DecisionKey(2, "d1"), []byte("other task")))

	results, err := s.Scan(DecisionPrefix(1))
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, DecisionKey(1, "d1"), results[0].Key)
	require.Equal(t, DecisionKey(1, "d2"), results[1].Key)
}

func TestOpenSelectsBoltByDefault(t *testing.T) {
	cfg := config.Defaults()
	cfg.Database.URL = filepath.Join(t.TempDir(), "default.db")

	store, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	_, isBolt := store.(*BoltStore)
	require.True(t, isBolt)
}

func TestOpenSQLBackendUsesSQLite(t *testing.T) {
	cfg := config.Defaults()
	cfg.PersistenceBackend = "sql"
	cfg.Database.Backend = "sqlite"
	cfg.Database.URL = filepath.Join(t.TempDir(), "sql.db")

	store, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(AgentKey("agent-a"), []byte(`{"role":"agent"}`)))
	v, ok, err := store.Get(AgentKey("agent-a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"role":"agent"}`, string(v))
}
