package protocol

import (
	"bytes"
	"testing"
)

func TestScratchOutputUpdateAndSince(t *testing.T) {
	out := NewScratchOutput()
	out.Output([]byte{1, 2, 3})
	out.Output([]byte{4, 5})

	if out.CurPosition() != 5 {
		t.Fatalf("position = %d, want 5", out.CurPosition())
	}

	out.Update(0, 99)
	if got := out.Result(); !bytes.Equal(got, []byte{99, 2, 3, 4, 5}) {
		t.Errorf("Result() = %v", got)
	}
	if got := out.DataSince(3); !bytes.Equal(got, []byte{4, 5}) {
		t.Errorf("DataSince(3) = %v", got)
	}
	if out.DataSince(10) != nil {
		t.Error("DataSince past the end should be nil")
	}

	out.Reset()
	if out.CurPosition() != 0 {
		t.Errorf("position after reset = %d", out.CurPosition())
	}
}

func TestFifoBufferWrap(t *testing.T) {
	f := NewFifoBuffer(8)

	if n := f.Write([]byte{1, 2, 3, 4, 5, 6}); n != 6 {
		t.Fatalf("wrote %d, want 6", n)
	}
	f.Pop(4)
	if n := f.Write([]byte{7, 8, 9, 10}); n != 4 {
		t.Fatalf("wrote %d after pop, want 4", n)
	}

	if got := f.Data(); !bytes.Equal(got, []byte{5, 6, 7, 8, 9, 10}) {
		t.Errorf("wrapped Data() = %v", got)
	}
	if f.Available() != 6 {
		t.Errorf("Available() = %d, want 6", f.Available())
	}

	// capacity is len-1
	if n := f.Write([]byte{11, 12}); n != 1 {
		t.Errorf("wrote %d into nearly full buffer, want 1", n)
	}
}

func TestSliceInputBufferPop(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3})
	buf.Pop(2)
	if buf.Available() != 1 || buf.Data()[0] != 3 {
		t.Errorf("after Pop(2): %v", buf.Data())
	}
	buf.Pop(5)
	if buf.Available() != 0 {
		t.Errorf("Pop past end left %d bytes", buf.Available())
	}
}
