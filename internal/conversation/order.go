package conversation

import (
	"cmp"
	"slices"
)

// SortMessages orders msgs most recent first.
//
// Messages sharing a timestamp (typically received ones with no block time)
// are tie-broken only among the received messages of that run: fewer
// confirmations first, then id. Any other message in the run keeps its
// position.
func SortMessages(msgs []Message) {
	slices.SortStableFunc(msgs, func(a, b Message) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})

	for start := 0; start < len(msgs); {
		end := start + 1
		for end < len(msgs) && msgs[end].Timestamp == msgs[start].Timestamp {
			end++
		}
		if end-start > 1 {
			orderReceived(msgs[start:end])
		}
		start = end
	}
}

func orderReceived(run []Message) {
	var slots []int
	var received []Message
	for i, m := range run {
		if m.Direction == Received {
			slots = append(slots, i)
			received = append(received, m)
		}
	}
	if len(received) < 2 {
		return
	}
	slices.SortFunc(received, func(a, b Message) int {
		if c := cmp.Compare(a.Confirmations, b.Confirmations); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for k, i := range slots {
		run[i] = received[k]
	}
}
