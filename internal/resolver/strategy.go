package resolver

import "fmt"

// Strategy decides how multiple UDP responses to the same query are combined
// into one answer. An on-path injector usually answers before the authentic
// server does, so each strategy encodes a different bet about which datagram
// to trust.
type Strategy int

const (
	// PickFirst trusts the first response received.
	PickFirst Strategy = iota
	// PickLater keeps replacing the held response until the deadline, then
	// returns the last one seen.
	PickLater
	// PickRight returns the first response that passes the forged-answer
	// check and keeps draining forged replies until one does.
	PickRight
	// PickRightLater holds the latest response that passes the forged-answer
	// check until the deadline.
	PickRightLater
	// PickAll accumulates every response until the deadline.
	PickAll
)

var strategyNames = map[Strategy]string{
	PickFirst:      "pick-first",
	PickLater:      "pick-later",
	PickRight:      "pick-right",
	PickRightLater: "pick-right-later",
	PickAll:        "pick-all",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy maps a strategy flag value to its Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for strategy, n := range strategyNames {
		if n == name {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("unsupported strategy: %s", name)
}
