package rpcapi

import "encoding/json"

// codecName is the wire content-subtype of this service's JSON codec,
// which the server (grpc.ForceServerCodec) and clients
// (grpc.ForceCodec) force in place of the default proto codec; it is
// not registered with google.golang.org/grpc/encoding. grpc's
// encoding.Codec interface works on
// plain interface{} values, so the request/response structs in
// messages.go need no proto.Message implementation to ride on top of
// it — the real grpc.Server, grpc.ServiceDesc, and unary interceptor
// chain all work unmodified.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
