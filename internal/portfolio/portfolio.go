// Package portfolio owns the FIFO lot queues, cash, and realized P&L:
// the only component allowed to mutate position state. It dispatches
// each FIFOOperation to an OPEN or CLOSE executor keyed by OperationType.
package portfolio

import (
	"math"

	"github.com/marketsim/backtest-core/internal/metrics"
	"github.com/marketsim/backtest-core/internal/types"
)

// View is the read-only execution snapshot handed to strategies,
// filters, and planners as part of the per-step View.
type View struct {
	CurrentPosition float64
	Cash            float64
	RealizedPnL     float64
	UnrealizedPnL   float64
	ActiveLongQty   float64
	ActiveShortQty  float64
}

// Portfolio is the engine-owned ledger: two ordered FIFO lot queues,
// cash, and cumulative realized P&L.
type Portfolio struct {
	initialCash     float64
	cash            float64
	currentPosition float64
	realizedPnL     float64
	lots            map[types.Side][]*types.FIFOPosition

	nextPositionID  int64
	nextOperationID int64
}

// New returns a Portfolio seeded with initialCash and empty lot queues.
func New(initialCash float64) *Portfolio {
	return &Portfolio{
		initialCash: initialCash,
		cash:        initialCash,
		lots: map[types.Side][]*types.FIFOPosition{
			types.Long:  {},
			types.Short: {},
		},
	}
}

// NextPositionID returns the next monotone FIFOPosition id and
// advances the counter.
func (p *Portfolio) NextPositionID() int64 {
	p.nextPositionID++
	return p.nextPositionID
}

// NextOperationID returns the next monotone FIFOOperation id and
// advances the counter.
func (p *Portfolio) NextOperationID() int64 {
	p.nextOperationID++
	return p.nextOperationID
}

// CurrentPosition returns the signed net exposure.
func (p *Portfolio) CurrentPosition() float64 { return p.currentPosition }

// Lots returns the live lot queues, in insertion order, for the
// transition engine's FIFO resolver to read. Callers must not mutate
// the returned slices or positions.
func (p *Portfolio) Lots() map[types.Side][]*types.FIFOPosition {
	return p.lots
}

// ApplyOperations mutates the portfolio by applying each FIFOOperation
// in order, returning the ordered Fills produced.
func (p *Portfolio) ApplyOperations(ops []types.FIFOOperation) ([]types.Fill, error) {
	fills := make([]types.Fill, 0, len(ops))
	for _, op := range ops {
		var fill types.Fill
		var err error
		switch op.Type {
		case types.Open:
			fill, err = p.executeOpen(op)
		case types.Close:
			fill, err = p.executeClose(op)
		default:
			err = &types.PortfolioExecutionError{Reason: "unknown operation type"}
		}
		if err != nil {
			return nil, err
		}
		fills = append(fills, fill)
		metrics.FillsTotal.WithLabelValues(string(op.Type), string(op.Side)).Inc()
	}
	p.reportQueueDepth()
	return fills, nil
}

// reportQueueDepth refreshes the FIFO queue depth gauge from the
// active lot quantity on each side.
func (p *Portfolio) reportQueueDepth() {
	for _, side := range []types.Side{types.Long, types.Short} {
		var active float64
		for _, lot := range p.lots[side] {
			if lot.IsActive {
				active += lot.Quantity
			}
		}
		metrics.FIFOQueueDepth.WithLabelValues(string(side)).Set(active)
	}
}

func direction(side types.Side) float64 {
	if side == types.Long {
		return 1
	}
	return -1
}

func (p *Portfolio) executeOpen(op types.FIFOOperation) (types.Fill, error) {
	if op.Quantity <= 0 {
		return types.Fill{}, &types.PortfolioExecutionError{Reason: "open quantity must be positive"}
	}
	if op.ExecutionPrice <= 0 {
		return types.Fill{}, &types.PortfolioExecutionError{Reason: "open execution price must be positive"}
	}

	lot := &types.FIFOPosition{
		ID:        op.ID,
		IsActive:  true,
		Timestamp: op.Timestamp,
		Side:      op.Side,
		Quantity:  op.Quantity,
		Price:     op.ExecutionPrice,
	}
	p.lots[op.Side] = append(p.lots[op.Side], lot)

	dir := direction(op.Side)
	positionBefore := p.currentPosition
	positionAfter := positionBefore + dir*op.Quantity
	cashBefore := p.cash
	cashAfter := cashBefore - dir*(op.Quantity*op.ExecutionPrice)

	p.currentPosition = positionAfter
	p.cash = cashAfter

	entryPrice := op.ExecutionPrice
	return types.Fill{
		Timestamp:        op.Timestamp,
		OpType:           types.Open,
		Side:             op.Side,
		Quantity:         op.Quantity,
		ExecutionPrice:   op.ExecutionPrice,
		EntryPrice:       &entryPrice,
		ExitPrice:        nil,
		PositionBefore:   positionBefore,
		PositionAfter:    positionAfter,
		CashBefore:       cashBefore,
		CashAfter:        cashAfter,
		RealizedPnL:      nil,
		LinkedPositionID: nil,
		OperationID:      op.ID,
	}, nil
}

func (p *Portfolio) executeClose(op types.FIFOOperation) (types.Fill, error) {
	if op.Quantity <= 0 {
		return types.Fill{}, &types.PortfolioExecutionError{Reason: "close quantity must be positive"}
	}
	if op.ExecutionPrice <= 0 {
		return types.Fill{}, &types.PortfolioExecutionError{Reason: "close execution price must be positive"}
	}
	if op.LinkedPositionID == nil {
		return types.Fill{}, &types.PortfolioExecutionError{Reason: "close operation missing linked_position_id"}
	}

	var lot *types.FIFOPosition
	for _, candidate := range p.lots[op.Side] {
		if candidate.ID == *op.LinkedPositionID {
			lot = candidate
			break
		}
	}
	if lot == nil {
		return types.Fill{}, &types.PortfolioExecutionError{Reason: "close references unknown lot id"}
	}
	if !lot.IsActive {
		return types.Fill{}, &types.PortfolioExecutionError{Reason: "close references an already-inactive lot"}
	}
	if op.Quantity > lot.Quantity {
		return types.Fill{}, &types.PortfolioExecutionError{Reason: "close quantity exceeds lot quantity"}
	}

	entryPrice := lot.Price
	if op.Quantity == lot.Quantity {
		lot.IsActive = false
	} else {
		lot.Quantity -= op.Quantity
	}

	dir := direction(op.Side)
	pnl := (op.ExecutionPrice - lot.Price) * op.Quantity * dir

	positionBefore := p.currentPosition
	positionAfter := positionBefore - dir*op.Quantity
	cashBefore := p.cash
	cashAfter := cashBefore + dir*(op.Quantity*op.ExecutionPrice)

	p.currentPosition = positionAfter
	p.cash = cashAfter
	p.realizedPnL += pnl

	exitPrice := op.ExecutionPrice
	linkedID := lot.ID
	metrics.RealizedPnL.Add(pnl)

	return types.Fill{
		Timestamp:        op.Timestamp,
		OpType:           types.Close,
		Side:             op.Side,
		Quantity:         op.Quantity,
		ExecutionPrice:   op.ExecutionPrice,
		EntryPrice:       &entryPrice,
		ExitPrice:        &exitPrice,
		PositionBefore:   positionBefore,
		PositionAfter:    positionAfter,
		CashBefore:       cashBefore,
		CashAfter:        cashAfter,
		RealizedPnL:      &pnl,
		LinkedPositionID: &linkedID,
		OperationID:      op.ID,
	}, nil
}

// UnrealizedPnL marks every active lot against markPrice on demand; it
// is never persisted as mutable state (see SPEC_FULL.md Open Question a).
func (p *Portfolio) UnrealizedPnL(markPrice float64) float64 {
	if math.IsNaN(markPrice) {
		return 0
	}
	var total float64
	for side, queue := range p.lots {
		dir := direction(side)
		for _, lot := range queue {
			if !lot.IsActive {
				continue
			}
			total += (markPrice - lot.Price) * lot.Quantity * dir
		}
	}
	return total
}

// View returns the read-only execution snapshot, marking unrealized
// P&L against markPrice.
func (p *Portfolio) View(markPrice float64) View {
	var activeLong, activeShort float64
	for _, lot := range p.lots[types.Long] {
		if lot.IsActive {
			activeLong += lot.Quantity
		}
	}
	for _, lot := range p.lots[types.Short] {
		if lot.IsActive {
			activeShort += lot.Quantity
		}
	}
	return View{
		CurrentPosition: p.currentPosition,
		Cash:            p.cash,
		RealizedPnL:     p.realizedPnL,
		UnrealizedPnL:   p.UnrealizedPnL(markPrice),
		ActiveLongQty:   activeLong,
		ActiveShortQty:  activeShort,
	}
}

// RealizedPnL returns the cumulative realized P&L.
func (p *Portfolio) RealizedPnL() float64 { return p.realizedPnL }

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }
