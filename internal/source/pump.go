package source

import (
	"context"
	"errors"
	"io"
)

// Pump delivers bytes from r to feed one at a time until r is exhausted or
// ctx is done. Reaching EOF is not an error.
func Pump(ctx context.Context, r io.ByteReader, feed func(byte)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		feed(b)
	}
}
