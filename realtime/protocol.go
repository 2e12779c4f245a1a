package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inkpress/authgate"
)

// Dispatchable methods. Anything else gets an error frame.
const (
	MethodComment    = "comment"
	MethodReply      = "reply"
	MethodDelComment = "delComment"
	MethodDelReply   = "delReply"
	MethodGetNotice  = "getNotice"
	MethodViewNotice = "viewNotice"
	MethodDelNotice  = "delNotice"
)

// Inbound is one client frame. Data is left opaque for the handler.
type Inbound struct {
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Outbound is one server frame. Error frames use Type "error" with Message
// set; data frames carry Type plus the handler's payload.
type Outbound struct {
	Type    string          `json:"type"`
	Method  string          `json:"method,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const outboundTypeError = "error"

func errorFrame(message string) Outbound {
	return Outbound{Type: outboundTypeError, Message: message}
}

// MessageHandler is the out-of-scope business contract behind the gateway:
// comment and notification persistence, fan-out, whatever the application
// does with a frame. A nil reply means no direct response.
//
// Handlers may call [Registry.Send] to push frames to other users.
type MessageHandler interface {
	HandleMessage(ctx context.Context, sender authgate.Identity, sessionID string, msg Inbound) (*Outbound, error)
}

// MessageHandlerFunc adapts a function to [MessageHandler].
type MessageHandlerFunc func(ctx context.Context, sender authgate.Identity, sessionID string, msg Inbound) (*Outbound, error)

func (f MessageHandlerFunc) HandleMessage(ctx context.Context, sender authgate.Identity, sessionID string, msg Inbound) (*Outbound, error) {
	return f(ctx, sender, sessionID, msg)
}

func knownMethod(method string) bool {
	switch method {
	case MethodComment, MethodReply, MethodDelComment, MethodDelReply,
		MethodGetNotice, MethodViewNotice, MethodDelNotice:
		return true
	}
	return false
}

func unknownMethodFrame(method string) Outbound {
	return errorFrame(fmt.Sprintf("unknown method: %s", method))
}
