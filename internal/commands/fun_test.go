package commands

import (
	"context"
	"strings"
	"testing"
)

func TestMockCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"hello world", "HeLlO wOrLd"},
		{"a b c", "A b C"},
		{"123!?", "123!?"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := mockCase(tt.in); got != tt.want {
			t.Errorf("mockCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStableScoreDeterministicAndSymmetric(t *testing.T) {
	a := stableScore("Alice", "Bob", 101)
	b := stableScore("alice ", "BOB", 101)
	c := stableScore("Bob", "Alice", 101)
	if a != b || a != c {
		t.Errorf("scores differ: %d %d %d", a, b, c)
	}
	if a < 0 || a > 100 {
		t.Errorf("score out of range: %d", a)
	}
}

func TestSplitOptions(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"tea | coffee | water", []string{"tea", "coffee", "water"}},
		{"yes no maybe", []string{"yes", "no", "maybe"}},
		{"pizza | ", []string{"pizza"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := splitOptions(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitOptions(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitOptions(%q) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}

func TestParseDice(t *testing.T) {
	tests := []struct {
		in           string
		count, sides int
		ok           bool
	}{
		{"2d20", 2, 20, true},
		{"d6", 1, 6, true},
		{"20", 1, 20, true},
		{"D8", 1, 8, true},
		{"0d6", 0, 0, false},
		{"2d1", 0, 0, false},
		{"21d6", 0, 0, false},
		{"abc", 0, 0, false},
		{"1", 0, 0, false},
	}
	for _, tt := range tests {
		count, sides, ok := parseDice(tt.in)
		if ok != tt.ok || count != tt.count || sides != tt.sides {
			t.Errorf("parseDice(%q) = %d, %d, %v; want %d, %d, %v",
				tt.in, count, sides, ok, tt.count, tt.sides, tt.ok)
		}
	}
}

func TestRunReverse(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{self: "999"}

	c := testCtx(t, db, client, "reverse hello world")
	if err := runReverse(context.Background(), c); err != nil {
		t.Fatalf("runReverse: %v", err)
	}
	if got := client.lastSent(); got != "dlrow olleh" {
		t.Errorf("reverse reply = %q", got)
	}
}

func TestRunChooseUsesOptions(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{self: "999"}
	withRand(t, func(n int) int { return 1 })

	c := testCtx(t, db, client, "choose tea | coffee | water")
	if err := runChoose(context.Background(), c); err != nil {
		t.Fatalf("runChoose: %v", err)
	}
	if got := client.lastSent(); got != "I choose: coffee" {
		t.Errorf("choose reply = %q", got)
	}
}

func TestRunShipReplyShape(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{self: "999"}

	c := testCtx(t, db, client, "ship alice bob")
	if err := runShip(context.Background(), c); err != nil {
		t.Fatalf("runShip: %v", err)
	}
	got := client.lastSent()
	if !strings.Contains(got, "Alice") || !strings.Contains(got, "Bob") || !strings.Contains(got, "%") {
		t.Errorf("ship reply = %q", got)
	}
}
