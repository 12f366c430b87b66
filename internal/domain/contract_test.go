package domain

import (
	"testing"
	"time"
)

func TestLooselyEqual(t *testing.T) {
	wellDefined := Contract{
		SecType:  SecTypeStock,
		Symbol:   "AAPL",
		ConID:    1234,
		Exchange: ExchangeNasdaq,
		Currency: USD,
	}

	tests := []struct {
		name  string
		loose Contract
		want  bool
	}{
		{
			name:  "identical contracts",
			loose: wellDefined,
			want:  true,
		},
		{
			name:  "symbol only",
			loose: Contract{SecType: SecTypeStock, Symbol: "AAPL"},
			want:  true,
		},
		{
			name:  "symbol and currency",
			loose: Contract{SecType: SecTypeStock, Symbol: "AAPL", Currency: USD},
			want:  true,
		},
		{
			name:  "symbol mismatch",
			loose: Contract{SecType: SecTypeStock, Symbol: "MSFT"},
			want:  false,
		},
		{
			name:  "exchange mismatch",
			loose: Contract{SecType: SecTypeStock, Symbol: "AAPL", Exchange: ExchangeNYSE},
			want:  false,
		},
		{
			name:  "con id mismatch",
			loose: Contract{SecType: SecTypeStock, Symbol: "AAPL", ConID: 99},
			want:  false,
		},
		{
			name:  "sec type mismatch",
			loose: Contract{SecType: SecTypeForex, Symbol: "AAPL"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooselyEqual(tt.loose, wellDefined); got != tt.want {
				t.Errorf("LooselyEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLooselyEqualOption(t *testing.T) {
	expiry := Date(time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC))
	wellDefined := NewOptionContract("SPY", 420, RightCall, 100, expiry)

	match := NewOptionContract("SPY", 420, RightCall, 100, expiry)
	if !LooselyEqual(match, wellDefined) {
		t.Error("expected matching option contracts to be loosely equal")
	}

	strikeMismatch := NewOptionContract("SPY", 425, RightCall, 100, expiry)
	if LooselyEqual(strikeMismatch, wellDefined) {
		t.Error("expected strike mismatch to fail loose equality")
	}

	rightMismatch := NewOptionContract("SPY", 420, RightPut, 100, expiry)
	if LooselyEqual(rightMismatch, wellDefined) {
		t.Error("expected right mismatch to fail loose equality")
	}
}

func TestContractAsMapKey(t *testing.T) {
	positions := map[Contract]float64{}
	positions[NewStockContract("AAPL")] = 10
	positions[NewStockContract("MSFT")] = -5

	if got := positions[NewStockContract("AAPL")]; got != 10 {
		t.Errorf("expected AAPL lookup by value to return 10, got %v", got)
	}
	if got := positions[NewStockContract("MSFT")]; got != -5 {
		t.Errorf("expected MSFT lookup by value to return -5, got %v", got)
	}
}
