package source

import (
	"errors"
	"testing"
)

func TestChangeSetApply(t *testing.T) {
	txt := NewText("let x = 1;\nlet y = x;")
	cs, err := NewChangeSet(txt.Len(),
		Change{From: 15, To: 16, Insert: "z"},
		Change{From: 0, To: 0, Insert: "// head\n"},
	)
	if err != nil {
		t.Fatalf("NewChangeSet: %v", err)
	}
	got := cs.Apply(txt)
	want := "// head\nlet x = 1;\nlet z = x;"
	if got.String() != want {
		t.Fatalf("Apply: got %q, want %q", got.String(), want)
	}
	if cs.NewLen() != got.Len() {
		t.Errorf("NewLen %d != applied length %d", cs.NewLen(), got.Len())
	}
}

func TestChangeSetRejects(t *testing.T) {
	tests := []struct {
		name    string
		changes []Change
	}{
		{"inverted", []Change{{From: 5, To: 2}}},
		{"past end", []Change{{From: 8, To: 12}}},
		{"overlap", []Change{{From: 1, To: 4}, {From: 3, To: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewChangeSet(10, tt.changes...); !errors.Is(err, ErrInvalidChange) {
				t.Fatalf("expected ErrInvalidChange, got %v", err)
			}
		})
	}
}

func TestChangeSetMapPos(t *testing.T) {
	// вставка в 10 и замена [20,25) на "ab"
	cs, err := NewChangeSet(40,
		Change{From: 10, To: 10, Insert: "12345"},
		Change{From: 20, To: 25, Insert: "ab"},
	)
	if err != nil {
		t.Fatalf("NewChangeSet: %v", err)
	}
	tests := []struct {
		name  string
		pos   uint32
		assoc int
		want  uint32
	}{
		{"before everything", 3, 1, 3},
		{"at insertion, before", 10, -1, 10},
		{"at insertion, after", 10, 1, 15},
		{"between changes", 15, 1, 20},
		{"start of replacement", 20, 1, 25},
		{"inside replacement, before", 22, -1, 25},
		{"inside replacement, after", 22, 1, 27},
		{"end of replacement", 25, -1, 27},
		{"after everything", 30, -1, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cs.MapPos(tt.pos, tt.assoc); got != tt.want {
				t.Fatalf("MapPos(%d, %d) = %d, want %d", tt.pos, tt.assoc, got, tt.want)
			}
		})
	}
}

func TestChangeSetNilIsIdentity(t *testing.T) {
	var cs *ChangeSet
	if !cs.Empty() {
		t.Fatal("nil change set should be empty")
	}
	if got := cs.MapPos(7, 1); got != 7 {
		t.Fatalf("nil MapPos = %d", got)
	}
	txt := NewText("abc")
	if cs.Apply(txt) != txt {
		t.Fatal("nil Apply should return the same text")
	}
}
