//go:build !unix

package source

import (
	"context"
	"fmt"
)

// serve reads the console from a helper goroutine. A blocking console read
// cannot be interrupted here, so the goroutine exits on the next key press
// after serve returns.
func (k *Keyboard) serve(ctx context.Context, feed func(byte)) error {
	keys := make(chan byte)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := k.in.Read(buf)
			if err != nil {
				readErr <- err
				return
			}
			if n == 1 {
				select {
				case keys <- buf[0]:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			emit(k.releaseAll(), feed)
			return ctx.Err()
		case err := <-readErr:
			emit(k.releaseAll(), feed)
			return fmt.Errorf("keyboard: read: %w", err)
		case key := <-keys:
			if err := k.press(key, feed); err != nil {
				return err
			}
		}
	}
}
