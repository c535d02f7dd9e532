package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dimspell/lobbywatch/internal/app/logger/logging"
	"github.com/fxamacker/cbor/v2"
)

var DefaultCodec = NewJSONCodec()

// Codec serialises command results and console responses.
type Codec struct {
	Name        string
	ContentType string
	Marshal     func(v any) ([]byte, error)
	Unmarshal   func(data []byte, v any) error
}

func NewJSONCodec() *Codec {
	return &Codec{
		Name:        "json",
		ContentType: "application/json",
		Marshal: func(v any) ([]byte, error) {
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return nil, err
			}
			return append(out, '\n'), nil
		},
		Unmarshal: json.Unmarshal,
	}
}

func NewCBORCodec() *Codec {
	return &Codec{
		Name:        "cbor",
		ContentType: "application/cbor",
		Marshal:     cbor.Marshal,
		Unmarshal:   cbor.Unmarshal,
	}
}

// CodecByName returns the codec registered under name ("json" or "cbor").
func CodecByName(name string) (*Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return NewJSONCodec(), nil
	case "cbor":
		return NewCBORCodec(), nil
	}
	return nil, fmt.Errorf("unknown output format: %q", name)
}

// Write encodes v and writes it to w in one call.
func (c *Codec) Write(w io.Writer, v any) error {
	out, err := c.Marshal(v)
	if err != nil {
		slog.Error("Could not encode the result", "codec", c.Name, logging.Error(err))
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(out))
	return err
}

// Read decodes the whole of r into v.
func (c *Codec) Read(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return io.ErrShortBuffer
	}
	return c.Unmarshal(data, v)
}
