// Package game implements the Puzzle Kit game state: player resources,
// areas, boosters, LiveOps events, team, settings, inbox and daily rewards,
// all driven by a pure reducer.
package game

import "time"

// EventType is the closed set of LiveOps event kinds.
type EventType string

const (
	EventRoyalPass    EventType = "royal_pass"
	EventLavaQuest    EventType = "lava_quest"
	EventSkyRace      EventType = "sky_race"
	EventTeamChest    EventType = "team_chest"
	EventAlbum        EventType = "album"
	EventMissionRush  EventType = "mission_rush"
	EventTreasureHunt EventType = "treasure_hunt"
	EventKingsCup     EventType = "kings_cup"
)

// Valid reports whether t is a known event kind.
func (t EventType) Valid() bool {
	switch t {
	case EventRoyalPass, EventLavaQuest, EventSkyRace, EventTeamChest,
		EventAlbum, EventMissionRush, EventTreasureHunt, EventKingsCup:
		return true
	}
	return false
}

// BoosterID identifies a booster kind.
type BoosterID string

const (
	BoosterHammer     BoosterID = "hammer"
	BoosterShuffle    BoosterID = "shuffle"
	BoosterExtraMoves BoosterID = "extra_moves"
	BoosterColorBomb  BoosterID = "color_bomb"
	BoosterRocket     BoosterID = "rocket"
)

// RewardKind is what a reward grants.
type RewardKind string

const (
	RewardCoins   RewardKind = "coins"
	RewardLives   RewardKind = "lives"
	RewardStars   RewardKind = "stars"
	RewardBooster RewardKind = "booster"
)

// Reward is a grant of a single resource.
type Reward struct {
	Kind      RewardKind `json:"kind" yaml:"kind"`
	Amount    int        `json:"amount" yaml:"amount"`
	BoosterID BoosterID  `json:"booster_id,omitempty" yaml:"booster_id,omitempty"`
}

// PlayerState holds the player's resources. Coins and stars are never
// negative; lives stay within [0, MaxLives].
type PlayerState struct {
	Coins        int    `json:"coins"`
	Lives        int    `json:"lives"`
	MaxLives     int    `json:"max_lives"`
	Stars        int    `json:"stars"`
	CurrentLevel int    `json:"current_level"`
	CurrentArea  int    `json:"current_area"`
	Username     string `json:"username"`
	TeamID       string `json:"team_id,omitempty"`
}

// AreaTask is a star-priced renovation task inside an area.
type AreaTask struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	StarCost  int    `json:"star_cost" yaml:"star_cost"`
	Completed bool   `json:"completed" yaml:"-"`
}

// Area is a group of tasks. Completing every task completes the area and
// unlocks the area with the next id.
type Area struct {
	ID        int        `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Tasks     []AreaTask `json:"tasks" yaml:"tasks"`
	Completed bool       `json:"completed" yaml:"-"`
	Unlocked  bool       `json:"unlocked" yaml:"-"`
}

// Booster is an owned stack of a booster kind.
type Booster struct {
	ID    BoosterID `json:"id" yaml:"id"`
	Name  string    `json:"name" yaml:"name"`
	Count int       `json:"count" yaml:"count"`
}

// LiveOpsEvent is a timed event. Progress is clamped to [0, MaxProgress].
type LiveOpsEvent struct {
	ID          string     `json:"id"`
	Type        EventType  `json:"type"`
	Name        string     `json:"name"`
	Progress    int        `json:"progress"`
	MaxProgress int        `json:"max_progress"`
	Rewards     []Reward   `json:"rewards"`
	Active      bool       `json:"active"`
	EndTime     *time.Time `json:"end_time"`
}

// TeamMember is one member of the player's team.
type TeamMember struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Level    int    `json:"level" yaml:"level"`
}

// Team is the player's team and its shared chest.
type Team struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	Members       []TeamMember `json:"members" yaml:"members"`
	ChestProgress int          `json:"chest_progress" yaml:"-"`
	ChestGoal     int          `json:"chest_goal" yaml:"chest_goal"`
}

// Settings are the player's preferences.
type Settings struct {
	Music         bool   `json:"music" yaml:"music"`
	Sound         bool   `json:"sound" yaml:"sound"`
	Notifications bool   `json:"notifications" yaml:"notifications"`
	Haptics       bool   `json:"haptics" yaml:"haptics"`
	Language      string `json:"language" yaml:"language"`
}

// InboxMessage is a message that may carry a claimable reward.
type InboxMessage struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Reward     *Reward   `json:"reward,omitempty"`
	Claimed    bool      `json:"claimed"`
	ReceivedAt time.Time `json:"received_at"`
}

// DailyReward is the reward for one day of the login calendar.
type DailyReward struct {
	Day     int    `json:"day" yaml:"day"`
	Reward  Reward `json:"reward" yaml:"reward"`
	Claimed bool   `json:"claimed" yaml:"-"`
}

// DailyRewards is the login calendar. CurrentDay is 1-based.
type DailyRewards struct {
	CurrentDay    int           `json:"current_day"`
	Days          []DailyReward `json:"days"`
	LastClaimedAt *time.Time    `json:"last_claimed_at,omitempty"`
}

// State is the whole game state. It is treated as immutable: the reducer
// returns a new *State for every change.
type State struct {
	Player       PlayerState    `json:"player"`
	Areas        []Area         `json:"areas"`
	Boosters     []Booster      `json:"boosters"`
	Events       []LiveOpsEvent `json:"events"`
	Team         *Team          `json:"team,omitempty"`
	Settings     Settings       `json:"settings"`
	Inbox        []InboxMessage `json:"inbox"`
	DailyRewards DailyRewards   `json:"daily_rewards"`
	Initialized  bool           `json:"initialized"`
}

// Area returns the area with id, if present.
func (s *State) Area(id int) (Area, bool) {
	for _, a := range s.Areas {
		if a.ID == id {
			return a, true
		}
	}
	return Area{}, false
}

// Event returns the event with id, if present.
func (s *State) Event(id string) (LiveOpsEvent, bool) {
	for _, e := range s.Events {
		if e.ID == id {
			return e, true
		}
	}
	return LiveOpsEvent{}, false
}

// BoosterCount returns how many of a booster the player owns.
func (s *State) BoosterCount(id BoosterID) int {
	for _, b := range s.Boosters {
		if b.ID == id {
			return b.Count
		}
	}
	return 0
}

// UnclaimedInbox counts inbox messages whose reward is still claimable.
func (s *State) UnclaimedInbox() int {
	n := 0
	for _, m := range s.Inbox {
		if !m.Claimed && m.Reward != nil {
			n++
		}
	}
	return n
}
