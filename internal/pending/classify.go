// Package pending tracks the wallet's unspent notes so the daemon can tell
// whether a message can be sent right away and whether the displayed balance
// still excludes unconfirmed change.
package pending

import (
	"github.com/matheus3301/vchat/internal/rpc"
	"github.com/shopspring/decimal"
)

// DefaultMinValue is one default transaction fee. Notes below it cannot pay
// for a send on their own.
var DefaultMinValue = decimal.RequireFromString("0.0001")

// Availability describes how many independent sends the wallet can make
// without waiting on change.
type Availability struct {
	Usable   int
	TooSmall int
	Largest  decimal.Decimal // largest usable note, zero when none
	Smallest decimal.Decimal // smallest usable note, zero when none
	Total    decimal.Decimal // sum of all notes
}

// Classify splits outputs into notes worth at least minValue and notes too
// small to fund a send.
func Classify(outputs []rpc.Output, minValue decimal.Decimal) Availability {
	var a Availability
	for _, o := range outputs {
		a.Total = a.Total.Add(o.Value)
		if o.Value.LessThan(minValue) {
			a.TooSmall++
			continue
		}
		if a.Usable == 0 || o.Value.GreaterThan(a.Largest) {
			a.Largest = o.Value
		}
		if a.Usable == 0 || o.Value.LessThan(a.Smallest) {
			a.Smallest = o.Value
		}
		a.Usable++
	}
	return a
}
