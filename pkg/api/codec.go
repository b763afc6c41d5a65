// Package api defines the RPC surface of the meal split service: wire
// messages, procedure names, handler constructors and typed clients.
//
// Messages are plain Go structs exchanged as JSON over the Connect protocol.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is the Connect codec name, selected by Content-Type application/json.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WithJSON registers the JSON codec on a handler or client. Clients need it to
// send JSON instead of the default protobuf encoding.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
