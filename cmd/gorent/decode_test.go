package main

import (
	"testing"

	"github.com/lvbealr/gorent/bencode"
)

func TestRenderJSON(t *testing.T) {
	v, n, err := bencode.Decode([]byte("d4:name2:hi5:counti3ee"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len("d4:name2:hi5:counti3ee") {
		t.Fatalf("unexpected consumed length: %d", n)
	}

	got := renderJSON(v)
	want := `{"name":"hi","count":3}`

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderJSONList(t *testing.T) {
	v, _, err := bencode.Decode([]byte("l4:spami42ee"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := renderJSON(v)
	want := `["spam",42]`

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
