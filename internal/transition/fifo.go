package transition

import (
	"math"

	"github.com/marketsim/backtest-core/internal/types"
)

// idSource hands out monotone FIFOOperation ids. The engine's
// Portfolio is the concrete implementation used at runtime.
type idSource interface {
	NextOperationID() int64
}

// guardPrice fails unless the execution price is a positive, non-NaN
// number.
func guardPrice(price float64) error {
	if math.IsNaN(price) || price <= 0 {
		return &types.GuardViolation{Kind: types.ActionPrice, Reason: "execution price must be positive and not NaN"}
	}
	return nil
}

// guardQuantity fails unless the action quantity is strictly positive.
func guardQuantity(qty float64) error {
	if qty <= 0 {
		return &types.GuardViolation{Kind: types.ActionQuantity, Reason: "action quantity must be positive"}
	}
	return nil
}

// guardActionType fails unless the action's declared type is of the
// operation (open or close) the resolver expects to handle.
func guardActionType(a types.AtomicAction, wantOp types.OperationType) error {
	if a.Type.OperationType() != wantOp {
		return &types.GuardViolation{Kind: types.ActionType, Reason: "action type does not match expected operation"}
	}
	return nil
}

// guardTimestamp fails unless the action carries a concrete timestamp.
func guardTimestamp(a types.AtomicAction) error {
	if a.Timestamp.IsZero() {
		return &types.GuardViolation{Kind: types.ActionTimestamp, Reason: "action timestamp must be set"}
	}
	return nil
}

// guardFIFOCapacity fails unless the side's active lot quantity covers
// the requested close quantity.
func guardFIFOCapacity(lots []*types.FIFOPosition, remaining float64) error {
	var active float64
	for _, lot := range lots {
		if lot.IsActive {
			active += lot.Quantity
		}
	}
	if active < remaining {
		return &types.GuardViolation{Kind: types.FIFOCapacity, Reason: "active lot quantity is insufficient to cover the close"}
	}
	return nil
}

// resolveOpen handles one OPEN_LONG/OPEN_SHORT action: exactly one
// FIFOOperation, no lot lookup.
func resolveOpen(a types.AtomicAction, price float64, ids idSource) ([]types.FIFOOperation, error) {
	if err := guardActionType(a, types.Open); err != nil {
		return nil, err
	}
	if err := guardQuantity(a.Quantity); err != nil {
		return nil, err
	}
	if err := guardPrice(price); err != nil {
		return nil, err
	}
	if err := guardTimestamp(a); err != nil {
		return nil, err
	}
	return []types.FIFOOperation{{
		ID:             ids.NextOperationID(),
		Timestamp:      a.Timestamp,
		Type:           types.Open,
		Side:           a.Type.Side(),
		Quantity:       a.Quantity,
		ExecutionPrice: price,
	}}, nil
}

// resolveClose walks lots in insertion order, skipping inactive or
// zero-quantity entries, producing one FIFOOperation per lot consumed
// until the requested quantity is exhausted.
func resolveClose(a types.AtomicAction, price float64, lots []*types.FIFOPosition, ids idSource) ([]types.FIFOOperation, error) {
	if err := guardActionType(a, types.Close); err != nil {
		return nil, err
	}
	if err := guardQuantity(a.Quantity); err != nil {
		return nil, err
	}
	if err := guardPrice(price); err != nil {
		return nil, err
	}
	if err := guardTimestamp(a); err != nil {
		return nil, err
	}
	if err := guardFIFOCapacity(lots, a.Quantity); err != nil {
		return nil, err
	}

	var ops []types.FIFOOperation
	remaining := a.Quantity
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		if !lot.IsActive || lot.Quantity <= 0 {
			continue
		}
		take := math.Min(remaining, lot.Quantity)
		lotID := lot.ID
		ops = append(ops, types.FIFOOperation{
			ID:               ids.NextOperationID(),
			Timestamp:        a.Timestamp,
			Type:             types.Close,
			Side:             a.Type.Side(),
			Quantity:         take,
			ExecutionPrice:   price,
			LinkedPositionID: &lotID,
		})
		remaining -= take
	}
	if remaining > 0 {
		return nil, &types.GuardViolation{Kind: types.FIFOCapacity, Reason: "lot queue exhausted before close quantity satisfied"}
	}
	return ops, nil
}

// resolve dispatches one AtomicAction to the open or close walk.
func resolve(a types.AtomicAction, price float64, lots map[types.Side][]*types.FIFOPosition, ids idSource) ([]types.FIFOOperation, error) {
	switch a.Type.OperationType() {
	case types.Open:
		return resolveOpen(a, price, ids)
	case types.Close:
		return resolveClose(a, price, lots[a.Type.Side()], ids)
	default:
		return nil, &types.GuardViolation{Kind: types.ActionType, Reason: "unrecognized atomic action type"}
	}
}
