package forks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/icarus-trading/icarus/pkg/bus"
	"github.com/icarus-trading/icarus/pkg/common"
)

type fakeProvisioner struct {
	forks     int
	deleted   []string
	forkErr   error
	deleteErr error
}

func (f *fakeProvisioner) Fork(ctx context.Context, parent string) (string, error) {
	if f.forkErr != nil {
		return "", f.forkErr
	}
	f.forks++
	return fmt.Sprintf("svc-fork-%d", f.forks), nil
}

func (f *fakeProvisioner) Describe(ctx context.Context, serviceID string) (common.ForkConnection, error) {
	return common.ForkConnection{
		ServiceID: serviceID,
		Host:      serviceID + ".db.example.com",
		Port:      5432,
		Database:  "tsdb",
		Username:  "tsdbadmin",
	}, nil
}

func (f *fakeProvisioner) Delete(ctx context.Context, serviceID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, serviceID)
	return nil
}

func testManager(t *testing.T, prov Provisioner, maxConcurrent int) (*Manager, *bus.Bus) {
	t.Helper()
	b := bus.NewBus(zap.NewNop())
	t.Cleanup(b.Close)

	cfg := Config{
		ParentServiceID: "svc-parent",
		MaxConcurrent:   maxConcurrent,
		DefaultTTL:      time.Hour,
		CleanupInterval: 30 * time.Minute,
	}
	return NewManager(cfg, b, prov, nil, nil, zap.NewNop()), b
}

func request(agent string) bus.Event {
	return bus.Event{
		Id: bus.ForkRequestEvent,
		Data: common.ForkRequest{
			RequestingAgent: agent,
			Purpose:         "experiment",
			TimeStamp:       time.Now(),
		},
	}
}

func TestRequest_CreatesAndAnnouncesFork(t *testing.T) {
	prov := &fakeProvisioner{}
	m, b := testManager(t, prov, 3)

	created, err := b.Subscribe(bus.ForkCreatedEvent)
	require.NoError(t, err)

	require.NoError(t, m.onRequest(context.Background(), request("meta-strategy")))

	select {
	case ev := <-created.Events():
		fc := ev.Data.(common.ForkCreated)
		assert.Equal(t, "svc-fork-1", fc.ForkID)
		assert.Equal(t, "meta-strategy", fc.RequestingAgent)
		assert.Equal(t, "svc-fork-1.db.example.com", fc.Connection.Host)
	case <-time.After(time.Second):
		t.Fatal("no ForkCreated published")
	}
	assert.Equal(t, 1, m.ActiveCount())
}

func TestRequest_RejectedAtCapacity(t *testing.T) {
	prov := &fakeProvisioner{}
	m, b := testManager(t, prov, 2)

	created, err := b.Subscribe(bus.ForkCreatedEvent)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, m.onRequest(context.Background(), request("agent")))
		<-created.Events()
	}
	require.Equal(t, 2, m.ActiveCount())

	// Third request bounces without touching the provisioner or state.
	require.NoError(t, m.onRequest(context.Background(), request("agent")))
	assert.Equal(t, 2, m.ActiveCount())
	assert.Equal(t, 2, prov.forks)

	select {
	case <-created.Events():
		t.Fatal("rejected request must not create a fork")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCompletion_DestroysFork(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := testManager(t, prov, 3)

	require.NoError(t, m.onRequest(context.Background(), request("agent")))
	require.Equal(t, 1, m.ActiveCount())

	require.NoError(t, m.onCompleted(context.Background(), bus.Event{
		Id:   bus.ForkCompletedEvent,
		Data: common.ForkCompleted{ForkID: "svc-fork-1", RequestingAgent: "agent"},
	}))

	assert.Equal(t, 0, m.ActiveCount())
	assert.Equal(t, []string{"svc-fork-1"}, prov.deleted)
}

func TestCompletion_UnknownForkIgnored(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := testManager(t, prov, 3)

	require.NoError(t, m.onCompleted(context.Background(), bus.Event{
		Id:   bus.ForkCompletedEvent,
		Data: common.ForkCompleted{ForkID: "svc-ghost"},
	}))
	assert.Empty(t, prov.deleted)
}

func TestSweep_TTLBoundary(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := testManager(t, prov, 3)
	m.cfg.DefaultTTL = 100 * time.Second

	base := time.Now()
	m.now = func() time.Time { return base }
	require.NoError(t, m.onRequest(context.Background(), request("agent")))

	// One second short of the TTL survives the sweep.
	m.now = func() time.Time { return base.Add(99 * time.Second) }
	require.NoError(t, m.sweepExpired(context.Background()))
	assert.Equal(t, 1, m.ActiveCount())

	// One second past it does not.
	m.now = func() time.Time { return base.Add(101 * time.Second) }
	require.NoError(t, m.sweepExpired(context.Background()))
	assert.Equal(t, 0, m.ActiveCount())
}

func TestDestroy_FailureKeepsTracking(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := testManager(t, prov, 3)

	require.NoError(t, m.onRequest(context.Background(), request("agent")))
	prov.deleteErr = errors.New("control plane unavailable")

	m.destroy(context.Background(), "svc-fork-1")
	assert.Equal(t, 1, m.ActiveCount(), "failed teardown must stay tracked for retry")

	prov.deleteErr = nil
	m.destroy(context.Background(), "svc-fork-1")
	assert.Equal(t, 0, m.ActiveCount())
}

type fakePools struct {
	opened []string
	closed []string
}

func (f *fakePools) OpenFork(forkID string, conn common.ForkConnection) error {
	f.opened = append(f.opened, forkID)
	return nil
}

func (f *fakePools) CloseFork(forkID string) {
	f.closed = append(f.closed, forkID)
}

func TestPools_FollowForkLifecycle(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := testManager(t, prov, 3)
	pools := &fakePools{}
	m.pools = pools

	require.NoError(t, m.onRequest(context.Background(), request("agent")))
	assert.Equal(t, []string{"svc-fork-1"}, pools.opened)

	m.destroy(context.Background(), "svc-fork-1")
	assert.Equal(t, []string{"svc-fork-1"}, pools.closed)
}

func TestShutdown_DestroysAllForks(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := testManager(t, prov, 5)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.onRequest(context.Background(), request("agent")))
	}
	require.Equal(t, 3, m.ActiveCount())

	require.NoError(t, m.destroyAll(context.Background()))
	assert.Equal(t, 0, m.ActiveCount())
	assert.Len(t, prov.deleted, 3)
}
