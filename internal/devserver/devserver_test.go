//go:build devserver

package devserver

import "testing"

func TestWriteToEmptyServerIsANoOp(t *testing.T) {
	s := New()
	n, err := s.Write([]byte("PC 0: LConst\n"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len("PC 0: LConst\n") {
		t.Fatalf("expected Write to report the full length, got %d", n)
	}
}
