package websocket

import (
	"errors"

	"roomchat/internal/models"
)

var (
	ErrNotInRoom          = errors.New("not in room")
	ErrInvalidContent     = errors.New("invalid content")
	ErrPersistence        = errors.New("persistence failure")
	ErrDelivery           = errors.New("delivery failure")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidEvent       = errors.New("invalid event")
	ErrMessageNotFound    = models.ErrMessageNotFound
	ErrClientDisconnected = errors.New("client disconnected")
	ErrHubClosed          = errors.New("hub is shutting down")
)

// Wire codes carried by the error event.
const (
	CodeNotInRoom          = "NOT_IN_ROOM"
	CodeInvalidContent     = "INVALID_CONTENT"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
	CodeDeliveryFailure    = "DELIVERY_FAILURE"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeMessageNotFound    = "MESSAGE_NOT_FOUND"
	CodeInvalidEvent       = "INVALID_EVENT"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorCode maps an operation error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotInRoom):
		return CodeNotInRoom
	case errors.Is(err, ErrInvalidContent):
		return CodeInvalidContent
	case errors.Is(err, ErrMessageNotFound):
		return CodeMessageNotFound
	case errors.Is(err, ErrPersistence):
		return CodePersistenceFailure
	case errors.Is(err, ErrDelivery):
		return CodeDeliveryFailure
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrInvalidEvent):
		return CodeInvalidEvent
	default:
		return CodeInternal
	}
}
