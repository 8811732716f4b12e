//go:build unix

package source

import (
	"context"
	"fmt"
	"syscall"
	"time"
)

const keyPoll = 5 * time.Millisecond

// serve polls the input without blocking, so nothing is left reading it
// once serve returns.
func (k *Keyboard) serve(ctx context.Context, feed func(byte)) error {
	fd := int(k.in.Fd())
	if err := syscall.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("keyboard: nonblocking input: %w", err)
	}
	defer func() { _ = syscall.SetNonblock(fd, false) }()

	buf := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			emit(k.releaseAll(), feed)
			return err
		}
		n, err := syscall.Read(fd, buf)
		if n == 1 {
			if err := k.press(buf[0], feed); err != nil {
				return err
			}
			continue
		}
		switch err {
		case nil, syscall.EAGAIN, syscall.EINTR:
			// n == 0 is end of input; keep polling until ctx ends.
			time.Sleep(keyPoll)
		default:
			emit(k.releaseAll(), feed)
			return fmt.Errorf("keyboard: read: %w", err)
		}
	}
}
