package console

import (
	"context"

	"github.com/kiwari-pos/tablepos/internal/terminal"
	"github.com/kiwari-pos/tablepos/internal/ws"
)

// Room is the websocket room every presentation client of the terminal joins.
const Room = "terminal"

// Publisher pushes events to websocket rooms. Satisfied by *ws.Hub.
type Publisher interface {
	Publish(ctx context.Context, room, eventType string, payload any)
}

// Broadcaster forwards session notices and settlements to the presentation
// clients. It implements terminal.Notifier and terminal.ReceiptSink.
type Broadcaster struct {
	pub Publisher
}

var (
	_ terminal.Notifier    = (*Broadcaster)(nil)
	_ terminal.ReceiptSink = (*Broadcaster)(nil)
)

func NewBroadcaster(pub Publisher) *Broadcaster {
	return &Broadcaster{pub: pub}
}

func (b *Broadcaster) Notify(ctx context.Context, n terminal.Notice) {
	b.publish(ctx, ws.EventNotice, n)
}

// Receipt sends the settlement snapshot; receipt layout is the client's job.
func (b *Broadcaster) Receipt(ctx context.Context, s terminal.Settlement) {
	b.publish(ctx, ws.EventSettled, s)
}

func (b *Broadcaster) publish(ctx context.Context, eventType string, payload any) {
	if b == nil || b.pub == nil {
		return
	}
	b.pub.Publish(ctx, Room, eventType, payload)
}
