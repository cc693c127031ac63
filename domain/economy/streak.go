package economy

// NonRestStreak tracks an agent's consecutive non-rest actions, in
// process memory only. It resets on restart; that is an acceptable loss
// of streak history, not a correctness issue.
type NonRestStreak struct {
	Current              int
	Best                  int
	LastRewardedMilestone int
}

// Advance applies one non-rest action: increments Current, updates Best,
// and returns the reward due (0 if no new milestone was just reached).
// Each milestone pays out at most once per streak.
func (s *NonRestStreak) Advance() int {
	s.Current++
	if s.Current > s.Best {
		s.Best = s.Current
	}
	for _, m := range streakMilestones {
		if s.Current == m && s.LastRewardedMilestone < m {
			s.LastRewardedMilestone = m
			return StreakReward(m)
		}
	}
	return 0
}

// Reset clears the streak on any rest action.
func (s *NonRestStreak) Reset() {
	s.Current = 0
	s.LastRewardedMilestone = 0
}
