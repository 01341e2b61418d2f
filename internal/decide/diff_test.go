package decide

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteDiff(t *testing.T) {
	tests := []struct {
		name     string
		old, new []byte
		want     string
	}{
		{"identical", []byte("a\n"), []byte("a\n"), "(no textual changes)\n"},
		{"binary dest", []byte{0xff, 0xfe}, []byte("a\n"), "(binary dest; 2 bytes)\n"},
		{"binary template", []byte("a\n"), []byte{0xff}, "(binary template; 1 bytes)\n"},
		{"too large", bytes.Repeat([]byte("x"), maxDiffBytes+1), []byte("a"), "(diff too large: 200001 -> 1 bytes)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeDiff(&buf, "dest", "template", tt.old, tt.new, false)
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteDiffUnified(t *testing.T) {
	var buf bytes.Buffer
	writeDiff(&buf, "dest", "template", []byte("one\ntwo\n"), []byte("one\nthree\n"), false)
	got := buf.String()
	for _, want := range []string{"--- dest\n", "+++ template\n", " one\n", "-two\n", "+three\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("diff missing %q:\n%s", want, got)
		}
	}
}

func TestWriteDiffColor(t *testing.T) {
	var buf bytes.Buffer
	writeDiff(&buf, "dest", "template", []byte("a\n"), []byte("b\n"), true)
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escapes, got %q", buf.String())
	}
}
