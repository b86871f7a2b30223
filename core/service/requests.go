package service

// Operation names as exposed on the wire.
const (
	OpPing      = "ping"
	OpSet       = "set"
	OpGet       = "get"
	OpDel       = "del"
	OpPublish   = "publish"
	OpSubscribe = "subscribe"
)

// Operations lists every supported operation.
var Operations = []string{OpPing, OpSet, OpGet, OpDel, OpPublish, OpSubscribe}

// StatusOK is the status returned by a successful set.
const StatusOK = "OK"

// Pong is the ping reply when no payload is given.
const Pong = "PONG"

// Request is implemented by every operation request.
type Request interface {
	Operation() string
}

// PingRequest echoes Payload, or asks for Pong when Payload is nil.
type PingRequest struct {
	Payload *string `json:"payload,omitempty"`
}

// PingResponse carries the echoed payload.
type PingResponse struct {
	Payload string `json:"payload"`
}

// SetRequest stores Value under Key.
type SetRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetResponse acknowledges a set.
type SetResponse struct {
	Status string `json:"status"`
}

// GetRequest reads Key.
type GetRequest struct {
	Key string `json:"key"`
}

// GetResponse carries the value, nil when the key is absent.
type GetResponse struct {
	Value *string `json:"value"`
}

// DelRequest removes Keys.
type DelRequest struct {
	Keys []string `json:"keys"`
}

// DelResponse reports how many keys were removed.
type DelResponse struct {
	Num int `json:"num"`
}

// PublishRequest sends Message on Channel.
type PublishRequest struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// PublishResponse reports how many subscribers received the message.
type PublishResponse struct {
	Num int `json:"num"`
}

// SubscribeRequest waits for the first message on any of Channels.
type SubscribeRequest struct {
	Channels []string `json:"channels"`
}

// SubscribeResponse carries the first message and the channel it arrived on.
type SubscribeResponse struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// StreamRequest stays attached to Channels and passes every message to Emit
// until the context ends or Emit fails. It is a subscribe for middleware
// purposes, so filters and timeouts on subscribe apply to it too.
type StreamRequest struct {
	Channels []string
	Emit     func(SubscribeResponse) error
}

func (PingRequest) Operation() string      { return OpPing }
func (SetRequest) Operation() string       { return OpSet }
func (GetRequest) Operation() string       { return OpGet }
func (DelRequest) Operation() string       { return OpDel }
func (PublishRequest) Operation() string   { return OpPublish }
func (SubscribeRequest) Operation() string { return OpSubscribe }
func (StreamRequest) Operation() string    { return OpSubscribe }
