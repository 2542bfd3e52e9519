package ledger

import (
	"fmt"
	"strings"
)

// Strategy selects how a reservation is protected against concurrent writers.
type Strategy uint8

const (
	// StrategyAtomic relies on a single conditional decrement in the store.
	StrategyAtomic Strategy = iota
	// StrategyOptimistic reads the version and retries a compare-and-swap.
	StrategyOptimistic
	// StrategyPessimistic holds a lock across read, check and write.
	StrategyPessimistic
)

var strategyNames = []string{"atomic", "optimistic", "pessimistic"}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", s)
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *Strategy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "atomic", "":
		*s = StrategyAtomic
	case "optimistic":
		*s = StrategyOptimistic
	case "pessimistic":
		*s = StrategyPessimistic
	default:
		return fmt.Errorf("unknown stock strategy: %s", text)
	}
	return nil
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
