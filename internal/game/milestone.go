package game

// Milestones are ascending level thresholds; each one reached doubles production.
type Milestones []int

// Multiplier returns 2^k where k is the number of thresholds reached.
func (m Milestones) Multiplier(level int) int64 {
	var mult int64 = 1
	for _, threshold := range m {
		if level >= threshold {
			mult *= 2
		}
	}
	return mult
}

// Next returns the first threshold above level, or false once maxed.
func (m Milestones) Next(level int) (int, bool) {
	for _, threshold := range m {
		if level < threshold {
			return threshold, true
		}
	}
	return 0, false
}

type MilestoneProgress struct {
	Progress float64 `json:"progress"`
	Next     int     `json:"next,omitempty"`
	Maxed    bool    `json:"maxed"`
}

// Progress reports how far level is between the previous and next thresholds.
func (m Milestones) Progress(level int) MilestoneProgress {
	next, ok := m.Next(level)
	if !ok {
		return MilestoneProgress{Progress: 1, Maxed: true}
	}
	prev := 0
	for _, threshold := range m {
		if threshold < next {
			prev = threshold
		}
	}
	p := float64(level-prev) / float64(next-prev)
	return MilestoneProgress{Progress: min(1, max(0, p)), Next: next}
}
