package domain

// DefaultAccount is the account used by the simulation broker for all fills.
const DefaultAccount = "DEFAULT"

// Position is the signed holding of one contract in one account.
// Quantity is positive for long positions and negative for short positions.
type Position struct {
	Account      string
	Contract     Contract
	Quantity     float64
	AveFillPrice float64 // volume-weighted average fill price
}
