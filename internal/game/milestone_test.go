package game

import "testing"

func TestMilestoneMultiplier(t *testing.T) {
	m := Milestones{25, 50, 100, 200, 400}
	tests := map[int]int64{
		0:   1,
		24:  1,
		25:  2,
		49:  2,
		50:  4,
		199: 8,
		200: 16,
		400: 32,
		999: 32,
	}
	for level, want := range tests {
		if got := m.Multiplier(level); got != want {
			t.Errorf("level %d: expected %d, got %d", level, want, got)
		}
	}
}

func TestMilestoneProgress(t *testing.T) {
	m := Milestones{25, 50, 100, 200, 400}
	tests := []struct {
		level int
		want  MilestoneProgress
	}{
		{0, MilestoneProgress{Progress: 0, Next: 25}},
		{10, MilestoneProgress{Progress: 0.4, Next: 25}},
		{25, MilestoneProgress{Progress: 0, Next: 50}},
		{75, MilestoneProgress{Progress: 0.5, Next: 100}},
		{300, MilestoneProgress{Progress: 0.5, Next: 400}},
		{400, MilestoneProgress{Progress: 1, Maxed: true}},
	}
	for _, tt := range tests {
		if got := m.Progress(tt.level); got != tt.want {
			t.Errorf("level %d: expected %+v, got %+v", tt.level, tt.want, got)
		}
	}
}

func TestMilestoneNext(t *testing.T) {
	m := Milestones{25, 50}
	if next, ok := m.Next(25); !ok || next != 50 {
		t.Fatalf("expected 50, got %d %v", next, ok)
	}
	if _, ok := m.Next(50); ok {
		t.Fatal("expected no milestone past the last")
	}
}
