package persist

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4Codec wraps another codec in an LZ4 frame. Checkpoint payloads carry
// whole timelines and plans; frames keep them small without giving up the
// inner codec's format.
type LZ4Codec struct {
	inner Codec
}

// NewLZ4Codec creates an LZ4 codec over compact JSON.
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{inner: &JSONCodec{}}
}

// Encode implements Codec.Encode: inner-encode into an LZ4 frame writer.
func (c *LZ4Codec) Encode(w io.Writer, state any) error {
	zw := lz4.NewWriter(w)

	err := c.inner.Encode(zw, state)
	if err != nil {
		return fmt.Errorf("lz4 encode: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode from an LZ4 frame.
func (c *LZ4Codec) Decode(r io.Reader, state any) error {
	err := c.inner.Decode(lz4.NewReader(r), state)
	if err != nil {
		return fmt.Errorf("lz4 decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for LZ4-framed JSON files.
func (c *LZ4Codec) Extension() string {
	return lz4Extension
}
