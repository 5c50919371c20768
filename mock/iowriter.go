package mock

import "sync"

// IOWriter captures everything written to it so tests can examine log output. It is safe
// for concurrent use as request goroutines may still be logging while a test reads.
type IOWriter struct {
	mu   sync.Mutex
	line []byte
}

func (t *IOWriter) Reset() {
	t.mu.Lock()
	t.line = make([]byte, 0)
	t.mu.Unlock()
}

func (t *IOWriter) Write(b []byte) (int, error) {
	t.mu.Lock()
	t.line = append(t.line, b...)
	t.mu.Unlock()

	return len(b), nil
}

func (t *IOWriter) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return string(t.line)
}

func (t *IOWriter) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.line)
}
