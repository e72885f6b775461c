package store

import (
	"context"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(badgerdb.DefaultOptions("").WithInMemory(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addr(b byte) model.NodeAddress {
	var a model.NodeAddress
	a[5] = b
	return a
}

// Property 3 (spec §8): for every record written, LoadMany([rec.address]) == rec.
func TestStore_KeyPreservation(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := model.NodeRecord{Address: addr(1)}
	require.NoError(t, s.Update(ctx, rec, MustCreate))

	got, err := s.LoadMany(ctx, []model.NodeAddress{addr(1)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}

func TestStore_LoadMany_NotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.LoadMany(ctx, []model.NodeAddress{addr(9)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ptneterr.ErrNotFound)
}

func TestStore_Update_MustCreate_FailsOnExisting(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := model.NodeRecord{Address: addr(1)}
	require.NoError(t, s.Update(ctx, rec, MustCreate))
	err := s.Update(ctx, rec, MustCreate)
	require.Error(t, err)
	assert.ErrorIs(t, err, ptneterr.ErrAlreadyExists)
}

func TestStore_Update_MustExist_FailsOnMissing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	err := s.Update(ctx, model.NodeRecord{Address: addr(1)}, MustExist)
	require.Error(t, err)
	assert.ErrorIs(t, err, ptneterr.ErrNotFound)
}

// Property 4 (spec §8): exactly one NodeAdded or NodeModified event per
// committed update/modify that actually changed the table.
func TestStore_EventCorrespondence(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	require.NoError(t, s.Update(ctx, model.NodeRecord{Address: addr(1)}, MustCreate))
	ev := <-events
	assert.Equal(t, NodeAdded, ev.Kind)
	assert.Equal(t, addr(1), ev.Record.Address)

	err := s.Modify(ctx, addr(1), func(r model.NodeRecord) (model.NodeRecord, bool) {
		r.DeviceStatus = &model.DeviceStatus{FWState: 1}
		return r, true
	})
	require.NoError(t, err)
	ev = <-events
	assert.Equal(t, NodeModified, ev.Kind)
	assert.EqualValues(t, 1, ev.Record.DeviceStatus.FWState)

	// Modify that reports no change must not publish an event.
	err = s.Modify(ctx, addr(1), func(r model.NodeRecord) (model.NodeRecord, bool) {
		return r, false
	})
	require.NoError(t, err)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after no-op modify: %+v", ev)
	default:
	}
}

func TestStore_Modify_CreatesMissingRecordWithDefaults(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	err := s.Modify(ctx, addr(2), func(r model.NodeRecord) (model.NodeRecord, bool) {
		r.DeviceDescriptor = &model.DeviceDescriptor{Raw: [7]byte{1, 2, 3, 4, 5, 6, 7}}
		return r, true
	})
	require.NoError(t, err)

	got, err := s.LoadMany(ctx, []model.NodeAddress{addr(2)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].DeviceStatus)
	require.NotNil(t, got[0].DeviceDescriptor)
}

func TestStore_RemoveMany(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Update(ctx, model.NodeRecord{Address: addr(1)}, MustCreate))
	require.NoError(t, s.RemoveMany(ctx, []model.NodeAddress{addr(1)}))
	_, err := s.LoadMany(ctx, []model.NodeAddress{addr(1)})
	assert.ErrorIs(t, err, ptneterr.ErrNotFound)
}

func TestStore_ListIsAddressOrdered(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for _, b := range []byte{3, 1, 2} {
		require.NoError(t, s.Update(ctx, model.NodeRecord{Address: addr(b)}, MustCreate))
	}
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, addr(1), list[0])
	assert.Equal(t, addr(2), list[1])
	assert.Equal(t, addr(3), list[2])
}

func TestStore_FWUState_DefaultsToGoalNone(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	st, err := s.GetFWUState(ctx, addr(1))
	require.NoError(t, err)
	assert.Equal(t, model.GoalNone, st.Goal.Kind)

	require.NoError(t, s.SetGoal(ctx, addr(1), model.Goal{Kind: model.GoalUpdateTo, Version: model.FWVersion{Major: 1}}))
	st, err = s.GetFWUState(ctx, addr(1))
	require.NoError(t, err)
	assert.Equal(t, model.GoalUpdateTo, st.Goal.Kind)
	assert.Equal(t, uint8(1), st.Goal.Version.Major)
}
