package asynclock

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestWith_SerializesSameName(t *testing.T) {
	r := NewRegistry()
	var counter int64
	var maxSeen int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.With("configuration", func() {
				n := atomic.AddInt64(&counter, 1)
				if n > atomic.LoadInt64(&maxSeen) {
					atomic.StoreInt64(&maxSeen, n)
				}
				atomic.AddInt64(&counter, -1)
			})
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected serialized access (max concurrent == 1), got %d", maxSeen)
	}
}

func TestWithErr_PropagatesError(t *testing.T) {
	r := NewRegistry()
	err := r.WithErr("x", func() error { return errTest })
	if err != errTest {
		t.Fatalf("expected errTest, got %v", err)
	}
}

var errTest = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
