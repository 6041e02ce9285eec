package server

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// jsonCodec carries plain Go structs over Connect. It replaces the
// default protojson codec, which only accepts generated proto messages.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

// codecOption is the handler and client option installing jsonCodec.
func codecOption() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
