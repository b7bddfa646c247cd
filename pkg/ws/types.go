package ws

import (
	"errors"
)

// Errors
var (
	ErrNotConnected      = errors.New("websocket connection is not established")
	ErrAlreadyConnected  = errors.New("already connected")
	ErrPrivateChannel    = errors.New("cannot subscribe on private websocket connection")
	ErrClosed            = errors.New("session closed")
	ErrHandshakeRejected = errors.New("websocket handshake rejected")
)

// State is the connection lifecycle state of a session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler consumes one raw inbound message.
type Handler func(message []byte)

// Subscription is one registered topic. It lives in the registry for the
// lifetime of the logical channel, independent of any physical connection.
type Subscription struct {
	Topic   string
	Params  map[string]string
	Handler Handler
}

// frame is the decoded view of the fields the session routes on.
type frame struct {
	Type    string `json:"type"`
	Time    string `json:"time"`
	Channel string `json:"channel"`
}

// pingFrame and pongFrame are the keepalive wire messages. Time is a
// millisecond string; pong echoes the ping's value verbatim.
type pingFrame struct {
	Type string `json:"type"`
	Time string `json:"time"`
}

type pongFrame struct {
	Type string `json:"type"`
	Time string `json:"time"`
}
