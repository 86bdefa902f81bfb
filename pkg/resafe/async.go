package resafe

import "context"

// Outcome pairs a Check result with its error.
type Outcome struct {
	Result *Result
	Err    error
}

// CheckAsync runs Check in a goroutine and delivers exactly one Outcome on
// the returned channel, which is then closed. If ctx is done before the
// check finishes, the outcome carries ctx.Err() and the check result is
// dropped. The channel is buffered, so an abandoned receiver never blocks
// the goroutine.
func CheckAsync(ctx context.Context, pattern string, opts Options) <-chan Outcome {
	out := make(chan Outcome, 1)

	go func() {
		defer close(out)

		if err := ctx.Err(); err != nil {
			out <- Outcome{Err: err}
			return
		}

		done := make(chan Outcome, 1)
		go func() {
			res, err := Check(pattern, opts)
			done <- Outcome{Result: res, Err: err}
		}()

		select {
		case o := <-done:
			out <- o
		case <-ctx.Done():
			out <- Outcome{Err: ctx.Err()}
		}
	}()

	return out
}
