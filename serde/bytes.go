package serde

var (
	_ Serde[[]byte]        = bytesSerde{}
	_ Serializer[[]byte]   = bytesSerde{}
	_ Deserializer[[]byte] = bytesSerde{}
)

type bytesSerde struct{}

// Bytes is the identity Serde for raw []byte values.
func Bytes() Serde[[]byte] {
	return bytesSerde{}
}

func (s bytesSerde) Serialize(_ string, value []byte) ([]byte, error) {
	return value, nil
}

func (s bytesSerde) Deserialize(_ string, data []byte) ([]byte, error) {
	return data, nil
}
