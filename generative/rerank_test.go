package generative

import (
	"reflect"
	"testing"
	"time"
)

func TestDeduplicate(t *testing.T) {
	in := []Candidate{
		{Title: "Economic Survey", Date: "06 May 2025", Content: "chunk one", Score: 0.4},
		{Title: "Economic Survey", Date: "06 May 2025", Content: "chunk two", Score: 0.6},
		{Title: "Economic Survey", Date: "07 May 2024", Content: "older edition", Score: 0.5},
	}

	got := Deduplicate(in)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Content != "chunk one" {
		t.Errorf("first occurrence should win, got %q", got[0].Content)
	}
	if got[1].Date != "07 May 2024" {
		t.Errorf("distinct date should survive, got %q", got[1].Date)
	}
}

func TestTimeDecay(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		date   string
		weight float64
		want   float64
	}{
		{name: "zero weight is always one", date: "01 January 2020", weight: 0, want: 1},
		{name: "zero age is one", date: "01 January 2026", weight: 2.5, want: 1},
		{name: "unparseable date is one", date: "sometime", weight: 1, want: 1},
		{name: "future date clamps to one", date: "01 January 2030", weight: 1, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeDecay(tt.date, tt.weight, now); got != tt.want {
				t.Errorf("TimeDecay(%q, %v) = %v, want %v", tt.date, tt.weight, got, tt.want)
			}
		})
	}

	oneYear := TimeDecay("01 January 2025", 1, now)
	twoYears := TimeDecay("01 January 2024", 1, now)
	if oneYear <= 1 || twoYears <= oneYear {
		t.Errorf("decay must grow with age: 1y=%v 2y=%v", oneYear, twoYears)
	}
}

func TestRerankZeroWeightKeepsOrder(t *testing.T) {
	now := time.Now()
	in := []Candidate{
		{Title: "A", Date: "01 January 2020", Score: 0.31},
		{Title: "B", Date: "01 January 2025", Score: 0.12},
		{Title: "C", Date: "01 January 2010", Score: 0.27},
	}

	got := Rerank(in, 0, now)

	wantTitles := []string{"B", "C", "A"}
	gotTitles := make([]string, len(got))
	for i, c := range got {
		gotTitles[i] = c.Title
	}
	if !reflect.DeepEqual(gotTitles, wantTitles) {
		t.Errorf("order = %v, want %v", gotTitles, wantTitles)
	}
	for i, want := range []float64{0.12, 0.27, 0.31} {
		if got[i].Score != want {
			t.Errorf("score[%d] = %v, want %v", i, got[i].Score, want)
		}
	}
}

func TestRerankAppliesDecay(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	in := []Candidate{
		{Title: "recent", Date: "01 January 2026", Score: 0.5},
		{Title: "decade old", Date: "01 January 2016", Score: 0.5},
	}

	got := Rerank(in, 1.0, now)

	// Equal raw distances diverge once the decay factor differs.
	if got[0].Score == got[1].Score {
		t.Fatalf("decay had no effect: %v vs %v", got[0].Score, got[1].Score)
	}
	if got[0].Score > got[1].Score {
		t.Errorf("results not ascending: %v then %v", got[0].Score, got[1].Score)
	}
}

func TestRerankRoundsScores(t *testing.T) {
	got := Rerank([]Candidate{{Title: "A", Date: "bad date", Score: 0.123456}}, 0, time.Now())
	if got[0].Score != 0.12 {
		t.Errorf("score = %v, want rounded to 2 decimal places", got[0].Score)
	}
}
