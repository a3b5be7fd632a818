package process

import (
	"context"
	"errors"
	"io"

	"aaxconv/internal/services"
)

// DefaultChunkSize is the bridge copy granularity, independent of the OS
// pipe buffer.
const DefaultChunkSize = 16 * 1024

// Bridge copies src into dst one chunk at a time until src is exhausted,
// checking ctx before each chunk. dst is closed on every return path.
// Errors observed once ctx is done are reported as cancellation.
func Bridge(ctx context.Context, src io.Reader, dst io.WriteCloser, chunkSize int) (err error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	defer func() {
		closeErr := dst.Close()
		if err == nil && closeErr != nil && !errors.Is(closeErr, io.ErrClosedPipe) {
			err = services.Wrap(services.ErrExternalTool, "bridge", "close destination", "", closeErr)
		}
	}()

	buf := make([]byte, chunkSize)
	for {
		if ctx.Err() != nil {
			return services.Cancelled("bridge")
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				if services.IsCancellation(ctx, writeErr) || ctx.Err() != nil {
					return services.Cancelled("bridge")
				}
				return services.Wrap(services.ErrExternalTool, "bridge", "write", "", writeErr)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			if services.IsCancellation(ctx, readErr) || ctx.Err() != nil {
				return services.Cancelled("bridge")
			}
			return services.Wrap(services.ErrExternalTool, "bridge", "read", "", readErr)
		}
	}
}
