package codec

// Codec encodes and decodes values for storage and the wire.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}
