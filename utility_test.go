package defrag

import "testing"

func TestUtf16LEToString(t *testing.T) {
	b := []byte{'a', 0, 'b', 0, 'c', 0, 'd', 0, 'e', 0}
	s := utf16LEToString(b, 3)

	if s != "abc" {
		t.Fatalf("utf16 not decoded correctly.")
	}
}
