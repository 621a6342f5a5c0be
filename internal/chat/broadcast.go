package chat

import "encoding/json"

// Broadcaster fans room-scoped events out to the members present at call
// time. Delivery is fire-and-forget: a member whose outbound queue is full,
// or that is mid-teardown, simply misses the frame.
type Broadcaster struct {
	table *Table
}

func NewBroadcaster(t *Table) *Broadcaster { return &Broadcaster{table: t} }

// Broadcast encodes event once and pushes it to every current room member
func (b *Broadcaster) Broadcast(roomID string, event any) {
	frame, err := json.Marshal(event)
	if err != nil {
		return
	}
	for _, c := range b.table.Members(roomID) {
		c.send(frame)
	}
}
