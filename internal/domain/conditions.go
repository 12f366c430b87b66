package domain

import "time"

// ChainType controls how a condition combines with the previous one in an
// order's condition list.
type ChainType string

const (
	ChainAnd ChainType = "AND"
	ChainOr  ChainType = "OR"
)

// ConditionDirection expresses whether a condition triggers above or below
// its reference value.
type ConditionDirection string

const (
	DirectionMore ConditionDirection = "MORE"
	DirectionLess ConditionDirection = "LESS"
)

// Condition is an activation predicate attached to an order. The simulation
// broker carries conditions on orders but does not evaluate them; they are
// interpreted by live-broker adapters.
type Condition interface {
	Chain() ChainType
}

// PriceCondition triggers when a contract's price crosses a threshold.
type PriceCondition struct {
	ChainType ChainType
	Contract  Contract
	Price     float64
	Direction ConditionDirection
}

func (c PriceCondition) Chain() ChainType { return c.ChainType }

// DateTimeCondition triggers before or after a point in time.
type DateTimeCondition struct {
	ChainType ChainType
	Target    time.Time
	Direction ConditionDirection
}

func (c DateTimeCondition) Chain() ChainType { return c.ChainType }

// ExecutionCondition triggers when any trade executes for the given
// symbol and venue.
type ExecutionCondition struct {
	ChainType ChainType
	SecType   SecType
	Exchange  Exchange
	Symbol    string
}

func (c ExecutionCondition) Chain() ChainType { return c.ChainType }
