package ports

// Decoder turns the raw bytes of one line into text.
type Decoder interface {
	Decode(raw []byte) (string, error)
	Encoding() string
}
