package cue

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/viper"
)

func TestNewList(t *testing.T) {
	tests := []struct {
		name    string
		cues    []Cue
		wantErr error
	}{
		{"empty", nil, nil},
		{"sample", Sample(), nil},
		{"contiguous", []Cue{{1, 0, 1000, "a"}, {2, 1000, 2000, "b"}}, nil},
		{"negative start", []Cue{{1, -1, 1000, "a"}}, ErrInvalidCue},
		{"zero window", []Cue{{1, 500, 500, "a"}}, ErrInvalidCue},
		{"blank text", []Cue{{1, 0, 500, "   "}}, ErrInvalidCue},
		{"duplicate id", []Cue{{1, 0, 500, "a"}, {1, 600, 900, "b"}}, ErrDuplicateID},
		{"unordered", []Cue{{1, 1000, 2000, "a"}, {2, 0, 500, "b"}}, ErrUnordered},
		{"overlap", []Cue{{1, 0, 1500, "a"}, {2, 1000, 2000, "b"}}, ErrOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := NewList(tt.cues)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewList() error = %v", err)
				}
				if len(list) != len(tt.cues) {
					t.Fatalf("len = %d, want %d", len(list), len(tt.cues))
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewList() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewListCopiesInput(t *testing.T) {
	in := []Cue{{1, 0, 1000, "a"}}
	list, err := NewList(in)
	if err != nil {
		t.Fatal(err)
	}
	in[0].Text = "changed"
	if list[0].Text != "a" {
		t.Errorf("list shares backing array with input")
	}
}

func TestCueContainsHalfOpen(t *testing.T) {
	c := Cue{ID: 1, StartMs: 1000, EndMs: 2000, Text: "x"}
	cases := map[int64]bool{999: false, 1000: true, 1999: true, 2000: false}
	for pos, want := range cases {
		if got := c.Contains(pos); got != want {
			t.Errorf("Contains(%d) = %v, want %v", pos, got, want)
		}
	}
	if c.Window() != 1000 {
		t.Errorf("Window() = %d, want 1000", c.Window())
	}
}

func TestListHelpers(t *testing.T) {
	list, err := Sample().Cues()
	if err != nil {
		t.Fatal(err)
	}
	if list.End() != 10000 {
		t.Errorf("End() = %d, want 10000", list.End())
	}
	c, ok := list.ByID(3)
	if !ok || c.StartMs != 6501 {
		t.Errorf("ByID(3) = %+v, %v", c, ok)
	}
	if _, ok := list.ByID(42); ok {
		t.Error("ByID(42) found a cue")
	}
	if (List{}).End() != 0 {
		t.Error("empty End() != 0")
	}
}

func TestViperSource(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	cfg := []byte(`
cues:
  - id: 7
    start_ms: 0
    end_ms: 2000
    text: "hello there"
  - id: 8
    start_ms: 2500
    end_ms: 4000
    text: "general kenobi"
`)
	if err := v.ReadConfig(bytes.NewReader(cfg)); err != nil {
		t.Fatal(err)
	}

	list, err := NewViperSource(v, "cues").Cues()
	if err != nil {
		t.Fatalf("Cues() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[1].ID != 8 || list[1].StartMs != 2500 || list[1].Text != "general kenobi" {
		t.Errorf("decoded %+v", list[1])
	}
}

func TestViperSourceValidates(t *testing.T) {
	v := viper.New()
	v.Set("cues", []map[string]any{
		{"id": 1, "start_ms": 0, "end_ms": 2000, "text": "a"},
		{"id": 2, "start_ms": 1000, "end_ms": 3000, "text": "b"},
	})

	if _, err := NewViperSource(v, "cues").Cues(); !errors.Is(err, ErrOverlap) {
		t.Fatalf("Cues() error = %v, want ErrOverlap", err)
	}
}

func TestViperSourceMissingKey(t *testing.T) {
	if _, err := NewViperSource(viper.New(), "cues").Cues(); err == nil {
		t.Fatal("expected error for missing key")
	}
}
