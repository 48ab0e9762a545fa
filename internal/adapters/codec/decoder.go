package codec

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/ghalamif/sensorlog/internal/domain"
	"github.com/ghalamif/sensorlog/internal/ports"
)

const utf8Name = "utf-8"

var errInvalidUTF8 = errors.New("invalid utf-8 sequence")

// Decoder converts device bytes to text using a WHATWG encoding label.
// UTF-8 input is validated strictly; other encodings go through x/text.
type Decoder struct {
	name string
	enc  encoding.Encoding
}

func NewDecoder(label string) (*Decoder, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = utf8Name
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = strings.ToLower(label)
	}
	d := &Decoder{name: name}
	if name != utf8Name {
		d.enc = enc
	}
	return d, nil
}

func (d *Decoder) Encoding() string { return d.name }

func (d *Decoder) Decode(raw []byte) (string, error) {
	if d.enc == nil {
		if !utf8.Valid(raw) {
			return "", &domain.DecodeError{Encoding: d.name, Line: raw, Err: errInvalidUTF8}
		}
		return string(raw), nil
	}
	out, err := d.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", &domain.DecodeError{Encoding: d.name, Line: raw, Err: err}
	}
	return string(out), nil
}

var _ ports.Decoder = (*Decoder)(nil)
