package search

import "testing"

func testIndex(opts ...Option) *Index {
	return New([]Entry{
		{Key: "balance", Text: "balance bal show your coin balance"},
		{Key: "daily", Text: "daily claim your daily coin reward and streak bonus"},
		{Key: "leaderboard", Text: "leaderboard top show the highest level users"},
		{Key: "rank", Text: "rank show your level and xp progress"},
	}, opts...)
}

func TestTopKRanksByOverlap(t *testing.T) {
	idx := testIndex()

	got := idx.TopK("claim daily reward", 2)
	if len(got) == 0 || got[0].Key != "daily" {
		t.Fatalf("TopK = %+v, want daily first", got)
	}
	if got[0].Score <= 0 || got[0].Score > 1 {
		t.Errorf("score out of range: %v", got[0].Score)
	}
}

func TestTopKNoMatch(t *testing.T) {
	idx := testIndex()
	if got := idx.TopK("zzzz qqqq", 3); got != nil {
		t.Errorf("TopK for unmatched query = %+v, want nil", got)
	}
	if got := idx.TopK("   ", 3); got != nil {
		t.Errorf("TopK for blank query = %+v, want nil", got)
	}
}

func TestTopKDeterministicTieBreak(t *testing.T) {
	idx := New([]Entry{
		{Key: "bbb", Text: "coins"},
		{Key: "aaa", Text: "coins"},
	})
	got := idx.TopK("coins", 2)
	if len(got) != 2 || got[0].Key != "aaa" || got[1].Key != "bbb" {
		t.Errorf("tie break not lexical: %+v", got)
	}
}

func TestStopwordsIgnored(t *testing.T) {
	idx := testIndex(WithStopwords([]string{"your", "the", "and"}))
	got := idx.TopK("show your level", 1)
	if len(got) != 1 || got[0].Key != "rank" {
		t.Errorf("TopK = %+v, want rank", got)
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := New(nil)
	if got := idx.TopK("anything", 3); got != nil {
		t.Errorf("TopK on empty index = %+v, want nil", got)
	}
}
