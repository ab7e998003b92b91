// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: wire_test.go — round-trip coverage for the wire codec
// ─────────────────────────────────────────────────────────────────────────────

package wire

import (
	"math/rand"
	"testing"
)

const rndSeed = 42

func TestReadWriteI16RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(rndSeed))
	buf := make([]byte, 2)

	for i := 0; i < 10_000; i++ {
		v := int16(r.Uint32())
		WriteI16(buf, v)
		if got := ReadI16(buf); got != v {
			t.Fatalf("ReadI16(WriteI16(%d)) = %d", v, got)
		}
	}
}

func TestReadWriteI32RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(rndSeed))
	buf := make([]byte, 4)

	for i := 0; i < 10_000; i++ {
		v := int32(r.Uint32())
		WriteI32(buf, v)
		if got := ReadI32(buf); got != v {
			t.Fatalf("ReadI32(WriteI32(%d)) = %d", v, got)
		}
	}
}

func TestReadWriteI64RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(rndSeed))
	buf := make([]byte, 8)

	for i := 0; i < 10_000; i++ {
		v := int64(r.Uint64())
		WriteI64(buf, v)
		if got := ReadI64(buf); got != v {
			t.Fatalf("ReadI64(WriteI64(%d)) = %d", v, got)
		}
	}
}

func TestStringSize(t *testing.T) {
	for n := 0; n <= 16; n++ {
		if got := StringSize(n); got != 2+2*n {
			t.Fatalf("StringSize(%d) = %d, want %d", n, got, 2+2*n)
		}
	}
}

func TestReadStringBodyRejectsHighSurrogate(t *testing.T) {
	buf := make([]byte, 4)
	WriteI16(buf, 0) // filler, overwritten below
	buf[0], buf[1] = 0xD8, 0x00
	buf[2], buf[3] = 0x00, 0x41

	dest := make([]uint16, 2)
	if ReadStringBody(buf, 2, dest) {
		t.Fatal("expected ReadStringBody to reject a high-surrogate code unit")
	}
}

func TestReadStringBodyAcceptsLowSurrogateAndBMP(t *testing.T) {
	buf := []byte{0xDC, 0x00, 0x00, 0x61}
	dest := make([]uint16, 2)
	if !ReadStringBody(buf, 2, dest) {
		t.Fatal("low surrogates and ordinary BMP scalars must be accepted")
	}
	if dest[0] != 0xDC00 || dest[1] != 'a' {
		t.Fatalf("unexpected decode: %v", dest)
	}
}

func TestStringBodyRoundTrip(t *testing.T) {
	src := []uint16{'a', 'b', 'c', 0x00FF}
	buf := make([]byte, StringSize(len(src)))
	WriteStringBody(buf[2:], src)
	WriteI16(buf, int16(len(src)))

	gotLen := ReadStringLen(buf)
	if int(gotLen) != len(src) {
		t.Fatalf("ReadStringLen = %d, want %d", gotLen, len(src))
	}

	dest := make([]uint16, gotLen)
	if !ReadStringBody(buf[2:], gotLen, dest) {
		t.Fatal("round-tripped body unexpectedly rejected")
	}
	for i := range src {
		if dest[i] != src[i] {
			t.Fatalf("dest[%d] = %x, want %x", i, dest[i], src[i])
		}
	}
}
