package transition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsim/backtest-core/internal/types"
)

type fakeIDs struct{ next int64 }

func (f *fakeIDs) NextOperationID() int64 {
	f.next++
	return f.next
}

func lot(id int64, side types.Side, qty, price float64) *types.FIFOPosition {
	return &types.FIFOPosition{ID: id, IsActive: true, Side: side, Quantity: qty, Price: price}
}

func plan(ts time.Time, target, price float64) types.ExecutionPlan {
	return types.ExecutionPlan{Timestamp: ts, TargetPosition: target, ExecutionPrice: price}
}

func TestProcessOpenLongFromFlat(t *testing.T) {
	e := NewEngine()
	ids := &fakeIDs{}
	lots := map[types.Side][]*types.FIFOPosition{types.Long: {}, types.Short: {}}

	_, ops, err := e.Process(plan(time.Unix(0, 0), 1, 100), 0, lots, ids)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, types.Open, ops[0].Type)
	assert.Equal(t, types.Long, ops[0].Side)
	assert.Equal(t, 1.0, ops[0].Quantity)
}

func TestProcessNoOpProducesNoOperations(t *testing.T) {
	e := NewEngine()
	ids := &fakeIDs{}
	lots := map[types.Side][]*types.FIFOPosition{types.Long: {}, types.Short: {}}

	_, ops, err := e.Process(plan(time.Unix(0, 0), 0, 100), 0, lots, ids)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestProcessReversalProducesCloseThenOpen(t *testing.T) {
	e := NewEngine()
	ids := &fakeIDs{}
	lots := map[types.Side][]*types.FIFOPosition{
		types.Long:  {lot(1, types.Long, 1, 100)},
		types.Short: {},
	}

	_, ops, err := e.Process(plan(time.Unix(1, 0), -1, 120), 1, lots, ids)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, types.Close, ops[0].Type)
	assert.Equal(t, types.Long, ops[0].Side)
	assert.Equal(t, types.Open, ops[1].Type)
	assert.Equal(t, types.Short, ops[1].Side)
}

func TestProcessFIFOOrderPreservation(t *testing.T) {
	e := NewEngine()
	ids := &fakeIDs{}
	lots := map[types.Side][]*types.FIFOPosition{
		types.Long: {lot(1, types.Long, 1, 10), lot(2, types.Long, 1, 20)},
	}

	_, ops, err := e.Process(plan(time.Unix(2, 0), 0, 30), 2, lots, ids)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, int64(1), *ops[0].LinkedPositionID)
	assert.Equal(t, int64(2), *ops[1].LinkedPositionID)
}

func TestProcessInsufficientCapacityFails(t *testing.T) {
	e := NewEngine()
	ids := &fakeIDs{}
	lots := map[types.Side][]*types.FIFOPosition{
		types.Long: {lot(1, types.Long, 1, 10)},
	}

	_, _, err := e.Process(plan(time.Unix(0, 0), 0, 100), 5, lots, ids)
	require.Error(t, err)
	var gv *types.GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, types.FIFOCapacity, gv.Kind)
}

func TestProcessZeroPriceFailsPriceGuard(t *testing.T) {
	e := NewEngine()
	ids := &fakeIDs{}
	lots := map[types.Side][]*types.FIFOPosition{types.Long: {}, types.Short: {}}

	_, _, err := e.Process(plan(time.Unix(0, 0), 1, 0), 0, lots, ids)
	require.Error(t, err)
	var gv *types.GuardViolation
	require.ErrorAs(t, err, &gv)
	assert.Equal(t, types.ActionPrice, gv.Kind)
}

func TestClassifyAllNineKeysCovered(t *testing.T) {
	cases := []struct {
		current, target float64
		want            types.TransitionType
	}{
		{0, 0, types.NoOp},
		{0, 1, types.TransOpenLong},
		{0, -1, types.TransOpenShort},
		{1, 0, types.TransCloseLong},
		{-1, 0, types.TransCloseShort},
		{1, 1, types.NoOp},
		{1, 2, types.IncreaseLong},
		{2, 1, types.ReduceLong},
		{-1, -1, types.NoOp},
		{-1, -2, types.IncreaseShort},
		{-2, -1, types.ReduceShort},
		{1, -1, types.ReversalToShort},
		{-1, 1, types.ReversalToLong},
	}
	for _, c := range cases {
		_, _, tt, err := classify(c.current, c.target)
		require.NoError(t, err)
		assert.Equal(t, c.want, tt, "current=%v target=%v", c.current, c.target)
	}
}
