package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/caen-go/caenlibs/pkg/caenhv"
)

// helloMessage is the first frame every client receives: which system the
// daemon watches and what it subscribed to.
type helloMessage struct {
	Type          string         `json:"type"`
	System        string         `json:"system"`
	Link          string         `json:"link"`
	Arg           string         `json:"arg"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// eventMessage is one decoded notification on the wire. Slot and Channel
// are omitted when the event does not address them; Value is null for
// keepalive and alarm events.
type eventMessage struct {
	Time    string        `json:"time"`
	Type    string        `json:"type"`
	Item    string        `json:"item,omitempty"`
	Slot    *int32        `json:"slot,omitempty"`
	Channel *int32        `json:"channel,omitempty"`
	Value   any           `json:"value"`
	Status  statusMessage `json:"status"`
}

type statusMessage struct {
	System int32   `json:"system"`
	Boards []int32 `json:"boards"`
}

func buildHello(dev *caenhv.Device, cfg *Config) ([]byte, error) {
	return json.Marshal(helloMessage{
		Type:          "HELLO",
		System:        dev.SystemType().String(),
		Link:          dev.LinkType().String(),
		Arg:           dev.Arg(),
		Subscriptions: cfg.Subscriptions,
	})
}

func encodeEvent(ts time.Time, ev caenhv.EventData, st caenhv.SystemStatus) eventMessage {
	msg := eventMessage{
		Time:   ts.UTC().Format(time.RFC3339Nano),
		Type:   ev.Type.String(),
		Item:   ev.ItemID,
		Value:  valueJSON(ev.Value),
		Status: statusMessage{System: st.System, Boards: st.Board[:]},
	}
	if ev.BoardIndex >= 0 {
		slot := ev.BoardIndex
		msg.Slot = &slot
	}
	if ev.ChannelIndex >= 0 {
		channel := ev.ChannelIndex
		msg.Channel = &channel
	}
	return msg
}

func valueJSON(v caenhv.Value) any {
	switch v.Kind() {
	case caenhv.ValueString:
		s, _ := v.AsString()
		return s
	case caenhv.ValueInt:
		i, _ := v.AsInt()
		return i
	case caenhv.ValueFloat:
		f, _ := v.AsFloat()
		return f
	case caenhv.ValueBool:
		b, _ := v.AsBool()
		return b
	}
	return nil
}

// runEventLoop reads the event stream until the context is cancelled and
// broadcasts every decoded notification. The event read blocks inside the
// native library; shutdown unblocks it by closing the device, which makes
// the read fail, so a failure after cancellation is a normal exit.
func runEventLoop(ctx context.Context, dev *caenhv.Device, h *hub) error {
	for {
		ev, st, err := dev.GetEventData()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event read: %w", err)
		}
		message, err := json.Marshal(encodeEvent(time.Now(), ev, st))
		if err != nil {
			return fmt.Errorf("event encode: %w", err)
		}
		slog.Debug("event", "type", ev.Type.String(), "item", ev.ItemID,
			"slot", ev.BoardIndex, "channel", ev.ChannelIndex)
		h.Broadcast(message)
	}
}
