package hirestimer

import "testing"

func TestReleaseIsIdempotent(t *testing.T) {
	release := Acquire()
	if release == nil {
		t.Fatalf("expected release func")
	}
	release()
	release()
}
