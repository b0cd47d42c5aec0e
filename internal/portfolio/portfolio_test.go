package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsim/backtest-core/internal/types"
)

func openOp(p *Portfolio, ts time.Time, side types.Side, qty, price float64) types.FIFOOperation {
	return types.FIFOOperation{
		ID:             p.NextOperationID(),
		Timestamp:      ts,
		Type:           types.Open,
		Side:           side,
		Quantity:       qty,
		ExecutionPrice: price,
	}
}

func closeOp(p *Portfolio, ts time.Time, side types.Side, qty, price float64, lotID int64) types.FIFOOperation {
	return types.FIFOOperation{
		ID:               p.NextOperationID(),
		Timestamp:        ts,
		Type:             types.Close,
		Side:             side,
		Quantity:         qty,
		ExecutionPrice:   price,
		LinkedPositionID: &lotID,
	}
}

func TestOpenCloseRoundTrip(t *testing.T) {
	p := New(1000)
	t0 := time.Unix(0, 0)
	t1 := time.Unix(1, 0)

	lotID := p.NextPositionID()
	fills, err := p.ApplyOperations([]types.FIFOOperation{
		{ID: lotID, Timestamp: t0, Type: types.Open, Side: types.Long, Quantity: 1, ExecutionPrice: 100},
	})
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, 1.0, p.CurrentPosition())
	assert.Nil(t, fills[0].RealizedPnL)

	fills, err = p.ApplyOperations([]types.FIFOOperation{
		closeOp(p, t1, types.Long, 1, 110, lotID),
	})
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.InDelta(t, 10, *fills[0].RealizedPnL, 1e-9)
	assert.Equal(t, 0.0, p.CurrentPosition())
	assert.InDelta(t, 10, p.RealizedPnL(), 1e-9)
	assert.InDelta(t, 1000, p.Cash(), 1e-9)
}

func TestShortWithLoss(t *testing.T) {
	p := New(1000)
	t0, t1 := time.Unix(0, 0), time.Unix(1, 0)

	lotID := p.NextPositionID()
	_, err := p.ApplyOperations([]types.FIFOOperation{
		{ID: lotID, Timestamp: t0, Type: types.Open, Side: types.Short, Quantity: 1, ExecutionPrice: 50},
	})
	require.NoError(t, err)

	fills, err := p.ApplyOperations([]types.FIFOOperation{
		closeOp(p, t1, types.Short, 1, 60, lotID),
	})
	require.NoError(t, err)
	assert.InDelta(t, -10, *fills[0].RealizedPnL, 1e-9)
	assert.InDelta(t, -10, p.RealizedPnL(), 1e-9)
}

func TestPartialClose(t *testing.T) {
	p := New(1000)
	t0 := time.Unix(0, 0)
	t1 := time.Unix(1, 0)
	t2 := time.Unix(2, 0)

	lot1 := p.NextPositionID()
	_, err := p.ApplyOperations([]types.FIFOOperation{
		{ID: lot1, Timestamp: t0, Type: types.Open, Side: types.Long, Quantity: 1, ExecutionPrice: 10},
	})
	require.NoError(t, err)
	lot2 := p.NextPositionID()
	_, err = p.ApplyOperations([]types.FIFOOperation{
		{ID: lot2, Timestamp: t1, Type: types.Open, Side: types.Long, Quantity: 1, ExecutionPrice: 10},
	})
	require.NoError(t, err)

	fills, err := p.ApplyOperations([]types.FIFOOperation{
		closeOp(p, t2, types.Long, 1, 15, lot1),
	})
	require.NoError(t, err)
	assert.InDelta(t, 5, *fills[0].RealizedPnL, 1e-9)
	assert.Equal(t, 1.0, p.CurrentPosition())

	active := 0.0
	for _, lot := range p.Lots()[types.Long] {
		if lot.IsActive {
			active += lot.Quantity
		}
	}
	assert.Equal(t, 1.0, active)
}

func TestCloseNonexistentLotFails(t *testing.T) {
	p := New(1000)
	bogus := int64(999)
	_, err := p.ApplyOperations([]types.FIFOOperation{
		closeOp(p, time.Unix(0, 0), types.Long, 1, 100, bogus),
	})
	require.Error(t, err)
	assert.IsType(t, &types.PortfolioExecutionError{}, err)
}

func TestCloseExceedingLotQuantityFails(t *testing.T) {
	p := New(1000)
	lotID := p.NextPositionID()
	_, err := p.ApplyOperations([]types.FIFOOperation{
		{ID: lotID, Timestamp: time.Unix(0, 0), Type: types.Open, Side: types.Long, Quantity: 1, ExecutionPrice: 10},
	})
	require.NoError(t, err)

	_, err = p.ApplyOperations([]types.FIFOOperation{
		closeOp(p, time.Unix(1, 0), types.Long, 2, 10, lotID),
	})
	require.Error(t, err)
	assert.IsType(t, &types.PortfolioExecutionError{}, err)
}

func TestCloseAlreadyInactiveLotFails(t *testing.T) {
	p := New(1000)
	lotID := p.NextPositionID()
	_, err := p.ApplyOperations([]types.FIFOOperation{
		{ID: lotID, Timestamp: time.Unix(0, 0), Type: types.Open, Side: types.Long, Quantity: 1, ExecutionPrice: 10},
	})
	require.NoError(t, err)
	_, err = p.ApplyOperations([]types.FIFOOperation{
		closeOp(p, time.Unix(1, 0), types.Long, 1, 11, lotID),
	})
	require.NoError(t, err)

	_, err = p.ApplyOperations([]types.FIFOOperation{
		closeOp(p, time.Unix(2, 0), types.Long, 1, 11, lotID),
	})
	require.Error(t, err)
	assert.IsType(t, &types.PortfolioExecutionError{}, err)
}

func TestUnrealizedPnLComputedOnDemand(t *testing.T) {
	p := New(1000)
	lotID := p.NextPositionID()
	_, err := p.ApplyOperations([]types.FIFOOperation{
		{ID: lotID, Timestamp: time.Unix(0, 0), Type: types.Open, Side: types.Long, Quantity: 2, ExecutionPrice: 10},
	})
	require.NoError(t, err)
	assert.InDelta(t, 20, p.UnrealizedPnL(20), 1e-9)
	assert.InDelta(t, 20, p.UnrealizedPnL(20), 1e-9)
}
