package scanvault

import "time"

// DecryptFuture represents an in-flight asynchronous decryption.
type DecryptFuture struct {
	plaintext []byte
	err       error
	done      chan struct{}
}

// DecryptAsync runs Decrypt on its own goroutine so large-payload
// decryption does not block a UI-bound caller. The contract is identical
// to Decrypt; there is no ordering guarantee between concurrently
// dispatched calls, and an abandoned future simply discards its result.
func (s *EncryptionService) DecryptAsync(data []byte) *DecryptFuture {
	// Copy so the caller can reuse its buffer immediately.
	buf := make([]byte, len(data))
	copy(buf, data)

	f := &DecryptFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.plaintext, f.err = s.Decrypt(buf)
	}()
	return f
}

// Await blocks until decryption completes and returns its result.
func (f *DecryptFuture) Await() ([]byte, error) {
	<-f.done
	return f.plaintext, f.err
}

// AwaitWithTimeout waits for decryption to complete with a timeout.
// If the timeout elapses first it returns ErrAwaitTimeout; the decryption
// keeps running and a later Await still yields its result.
func (f *DecryptFuture) AwaitWithTimeout(timeout time.Duration) ([]byte, error) {
	select {
	case <-f.done:
		return f.plaintext, f.err
	case <-time.After(timeout):
		return nil, ErrAwaitTimeout
	}
}

// IsComplete checks whether decryption has finished without blocking.
func (f *DecryptFuture) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
