package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Dispatch decodes one inbound frame from connID and runs the matching
// operation. Any failure is reported to connID alone as an error event.
func (h *Hub) Dispatch(ctx context.Context, connID string, frame []byte) {
	if err := h.dispatch(ctx, connID, frame); err != nil {
		slog.Debug("Event rejected", "connID", connID, "error", err)
		h.sendError(connID, err)
	}
}

func (h *Hub) dispatch(ctx context.Context, connID string, frame []byte) error {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return fmt.Errorf("malformed frame: %w", ErrInvalidEvent)
	}
	if !env.Type.IsInbound() {
		return fmt.Errorf("unknown event type %q: %w", env.Type, ErrInvalidEvent)
	}

	switch env.Type {
	case EventJoin:
		var data JoinData
		if err := decodeData(env, &data); err != nil {
			return err
		}
		return h.Join(ctx, connID, data.Room)

	case EventLeave:
		return h.Leave(ctx, connID)

	case EventMessage:
		var data MessageData
		if err := decodeData(env, &data); err != nil {
			return err
		}
		room := data.Room
		if room == "" {
			member, ok := h.index.Lookup(connID)
			if !ok {
				return fmt.Errorf("message: %w", ErrNotInRoom)
			}
			room = member.Room
		}
		return h.SendRoomMessage(ctx, connID, room, data.Content)

	case EventPrivateMessage:
		var data PrivateMessageData
		if err := decodeData(env, &data); err != nil {
			return err
		}
		return h.SendPrivateMessage(ctx, connID, data.RecipientID, data.Content)

	case EventTyping:
		var data TypingData
		if err := decodeData(env, &data); err != nil {
			return err
		}
		return h.SetTyping(ctx, connID, data.IsTyping)

	case EventReadReceipt:
		var data ReadReceiptData
		if err := decodeData(env, &data); err != nil {
			return err
		}
		if data.MessageID == "" {
			return fmt.Errorf("read receipt without message id: %w", ErrInvalidEvent)
		}
		return h.MarkRead(ctx, connID, data.MessageID)
	}

	return nil
}

// decodeData treats a missing data field as an empty object.
func decodeData(env Envelope, v interface{}) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("bad %s payload: %w", env.Type, ErrInvalidEvent)
	}
	return nil
}
