package comptoirsv1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName: content-subtype, под которым зарегистрирован кодек.
const CodecName = "json"

// Codec сериализует сообщения gRPC в JSON.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal %T: %w", v, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return CodecName }

// CallOption заставляет клиента отправлять вызовы с content-subtype json.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}

func init() {
	encoding.RegisterCodec(Codec{})
}
