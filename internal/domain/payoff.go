package domain

import (
	"fmt"
	"math"
	"strings"
)

// OptionType call or put.
type OptionType int

const (
	Call OptionType = 1
	Put  OptionType = -1
)

// ParseOptionType accepts "call" or "put".
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	default:
		return 0, InvalidConfigf("unknown option type %q", s)
	}
}

func (t OptionType) String() string {
	if t == Put {
		return "put"
	}
	return "call"
}

// Payoff maps the underlying price at exercise to a cash amount.
type Payoff interface {
	Name() string
	Type() OptionType
	Strike() float64
	Value(spot float64) float64
}

// PlainVanilla max(S-K, 0) for calls, max(K-S, 0) for puts.
type PlainVanilla struct {
	OptionType OptionType
	K          float64
}

// NewPlainVanilla returns a plain vanilla payoff.
func NewPlainVanilla(t OptionType, strike float64) (PlainVanilla, error) {
	if strike <= 0 || math.IsNaN(strike) {
		return PlainVanilla{}, InvalidConfigf("strike must be positive, got %v", strike)
	}
	return PlainVanilla{OptionType: t, K: strike}, nil
}

func (p PlainVanilla) Name() string     { return "vanilla" }
func (p PlainVanilla) Type() OptionType { return p.OptionType }
func (p PlainVanilla) Strike() float64  { return p.K }

func (p PlainVanilla) Value(spot float64) float64 {
	return math.Max(float64(p.OptionType)*(spot-p.K), 0)
}

func (p PlainVanilla) String() string {
	return fmt.Sprintf("%s %g", p.OptionType, p.K)
}

// CashOrNothing pays Cash when the option finishes in the money.
type CashOrNothing struct {
	OptionType OptionType
	K          float64
	Cash       float64
}

// NewCashOrNothing returns a digital payoff.
func NewCashOrNothing(t OptionType, strike, cash float64) (CashOrNothing, error) {
	if strike <= 0 || math.IsNaN(strike) {
		return CashOrNothing{}, InvalidConfigf("strike must be positive, got %v", strike)
	}
	return CashOrNothing{OptionType: t, K: strike, Cash: cash}, nil
}

func (p CashOrNothing) Name() string     { return "cash-or-nothing" }
func (p CashOrNothing) Type() OptionType { return p.OptionType }
func (p CashOrNothing) Strike() float64  { return p.K }

func (p CashOrNothing) Value(spot float64) float64 {
	if float64(p.OptionType)*(spot-p.K) > 0 {
		return p.Cash
	}
	return 0
}
