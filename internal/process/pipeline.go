package process

import (
	"context"

	"aaxconv/internal/services"
)

// Pipeline runs a decoder whose stdout feeds an encoder's stdin.
type Pipeline struct {
	Runner    *Runner
	ChunkSize int
}

// Run starts the encoder, then the decoder, bridges them, and waits for
// both. A non-zero exit surfaces as a ProcessError carrying the failing
// argument vector; the decoder is reported first unless the bridge broke on
// the encoder side.
func (p Pipeline) Run(ctx context.Context, decodeArgs, encodeArgs []string) error {
	runner := p.Runner
	if runner == nil {
		runner = NewRunner(nil)
	}

	encoder, err := runner.Start(ctx, encodeArgs, Streams{Stdin: Pipe})
	if err != nil {
		return err
	}
	decoder, err := runner.Start(ctx, decodeArgs, Streams{Stdout: Pipe})
	if err != nil {
		_ = encoder.Stdin.Close()
		encoder.Kill()
		_ = encoder.Wait(context.WithoutCancel(ctx))
		return err
	}

	// A read blocked on a silent decoder cannot see ctx, so cancellation
	// kills both children to unblock the bridge.
	stop := context.AfterFunc(ctx, func() {
		decoder.Kill()
		encoder.Kill()
	})
	defer stop()

	bridgeErr := Bridge(ctx, decoder.Stdout, encoder.Stdin, p.ChunkSize)
	_ = decoder.Stdout.Close()

	decodeErr := decoder.Wait(ctx)
	encodeErr := encoder.Wait(ctx)

	if ctx.Err() != nil || services.IsCancellation(ctx, bridgeErr) {
		return services.Cancelled("transcode")
	}
	if bridgeErr != nil {
		return firstError(encodeErr, decodeErr, bridgeErr)
	}
	return firstError(decodeErr, encodeErr)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
