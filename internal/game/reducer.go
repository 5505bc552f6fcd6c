package game

// Reduce applies a to s. It never mutates s: a no-op returns s itself and
// any change returns a fresh *State that shares untouched slices with s.
func Reduce(s *State, a Action) *State {
	switch a := a.(type) {
	case UpdateCoins:
		return withPlayer(s, func(p *PlayerState) { p.Coins = clampMin(p.Coins+a.Delta, 0) })
	case UpdateLives:
		return withPlayer(s, func(p *PlayerState) { p.Lives = clamp(p.Lives+a.Delta, 0, p.MaxLives) })
	case UpdateStars:
		return withPlayer(s, func(p *PlayerState) { p.Stars = clampMin(p.Stars+a.Delta, 0) })
	case CompleteLevel:
		return withPlayer(s, func(p *PlayerState) {
			p.CurrentLevel++
			p.Stars = clampMin(p.Stars+a.Stars, 0)
			p.Coins = clampMin(p.Coins+a.Coins, 0)
		})
	case CompleteTask:
		return completeTask(s, a)
	case UseBooster:
		return adjustBooster(s, a.BoosterID, -1)
	case AddBooster:
		if a.Count <= 0 {
			return s
		}
		return adjustBooster(s, a.BoosterID, a.Count)
	case UpdateEventProgress:
		return updateEventProgress(s, a)
	case UpdateSettings:
		return updateSettings(s, a)
	case ClaimInboxMessage:
		return claimInbox(s, a)
	case ClaimDailyReward:
		return claimDaily(s, a)
	case UpdateTeamProgress:
		if s.Team == nil {
			return s
		}
		progress := clamp(s.Team.ChestProgress+a.Delta, 0, s.Team.ChestGoal)
		if progress == s.Team.ChestProgress {
			return s
		}
		next := *s
		team := *s.Team
		team.ChestProgress = progress
		next.Team = &team
		return &next
	}
	return s
}

func withPlayer(s *State, mutate func(*PlayerState)) *State {
	p := s.Player
	mutate(&p)
	if p == s.Player {
		return s
	}
	next := *s
	next.Player = p
	return &next
}

func completeTask(s *State, a CompleteTask) *State {
	ai := -1
	for i, area := range s.Areas {
		if area.ID == a.AreaID {
			ai = i
			break
		}
	}
	if ai < 0 || !s.Areas[ai].Unlocked {
		return s
	}
	area := s.Areas[ai]

	ti := -1
	for i, task := range area.Tasks {
		if task.ID == a.TaskID {
			ti = i
			break
		}
	}
	if ti < 0 || area.Tasks[ti].Completed || s.Player.Stars < area.Tasks[ti].StarCost {
		return s
	}

	next := *s
	next.Player.Stars -= area.Tasks[ti].StarCost
	next.Areas = append([]Area(nil), s.Areas...)

	tasks := append([]AreaTask(nil), area.Tasks...)
	tasks[ti].Completed = true
	area.Tasks = tasks

	area.Completed = true
	for _, t := range tasks {
		if !t.Completed {
			area.Completed = false
			break
		}
	}
	next.Areas[ai] = area

	if area.Completed {
		for i := range next.Areas {
			if next.Areas[i].ID == area.ID+1 && !next.Areas[i].Unlocked {
				next.Areas[i].Unlocked = true
				next.Player.CurrentArea = next.Areas[i].ID
			}
		}
	}
	return &next
}

func adjustBooster(s *State, id BoosterID, delta int) *State {
	for i, b := range s.Boosters {
		if b.ID != id {
			continue
		}
		count := clampMin(b.Count+delta, 0)
		if count == b.Count {
			return s
		}
		next := *s
		next.Boosters = append([]Booster(nil), s.Boosters...)
		next.Boosters[i].Count = count
		return &next
	}
	if delta <= 0 {
		return s
	}
	next := *s
	next.Boosters = append(append([]Booster(nil), s.Boosters...), Booster{ID: id, Name: string(id), Count: delta})
	return &next
}

func updateEventProgress(s *State, a UpdateEventProgress) *State {
	for i, e := range s.Events {
		if e.ID != a.EventID {
			continue
		}
		if !e.Active {
			return s
		}
		progress := clamp(e.Progress+a.Delta, 0, e.MaxProgress)
		if progress == e.Progress {
			return s
		}
		next := *s
		next.Events = append([]LiveOpsEvent(nil), s.Events...)
		next.Events[i].Progress = progress
		return &next
	}
	return s
}

func updateSettings(s *State, a UpdateSettings) *State {
	st := s.Settings
	if a.Music != nil {
		st.Music = *a.Music
	}
	if a.Sound != nil {
		st.Sound = *a.Sound
	}
	if a.Notifications != nil {
		st.Notifications = *a.Notifications
	}
	if a.Haptics != nil {
		st.Haptics = *a.Haptics
	}
	if a.Language != nil && *a.Language != "" {
		st.Language = *a.Language
	}
	if st == s.Settings {
		return s
	}
	next := *s
	next.Settings = st
	return &next
}

func claimInbox(s *State, a ClaimInboxMessage) *State {
	for i, m := range s.Inbox {
		if m.ID != a.MessageID {
			continue
		}
		if m.Claimed {
			return s
		}
		next := *s
		next.Inbox = append([]InboxMessage(nil), s.Inbox...)
		next.Inbox[i].Claimed = true
		if m.Reward != nil {
			applyReward(&next, *m.Reward)
		}
		return &next
	}
	return s
}

func claimDaily(s *State, a ClaimDailyReward) *State {
	if a.Day != s.DailyRewards.CurrentDay {
		return s
	}
	for i, d := range s.DailyRewards.Days {
		if d.Day != a.Day {
			continue
		}
		if d.Claimed {
			return s
		}
		next := *s
		next.DailyRewards.Days = append([]DailyReward(nil), s.DailyRewards.Days...)
		next.DailyRewards.Days[i].Claimed = true
		if !a.At.IsZero() {
			at := a.At
			next.DailyRewards.LastClaimedAt = &at
		}
		if last := lastDay(next.DailyRewards.Days); next.DailyRewards.CurrentDay < last {
			next.DailyRewards.CurrentDay++
		}
		applyReward(&next, d.Reward)
		return &next
	}
	return s
}

// applyReward mutates next, which must already be a private copy. Slices it
// touches are copied first.
func applyReward(next *State, r Reward) {
	switch r.Kind {
	case RewardCoins:
		next.Player.Coins = clampMin(next.Player.Coins+r.Amount, 0)
	case RewardLives:
		next.Player.Lives = clamp(next.Player.Lives+r.Amount, 0, next.Player.MaxLives)
	case RewardStars:
		next.Player.Stars = clampMin(next.Player.Stars+r.Amount, 0)
	case RewardBooster:
		if r.Amount > 0 {
			*next = *adjustBooster(next, r.BoosterID, r.Amount)
		}
	}
}

func lastDay(days []DailyReward) int {
	last := 0
	for _, d := range days {
		if d.Day > last {
			last = d.Day
		}
	}
	return last
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampMin(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}
