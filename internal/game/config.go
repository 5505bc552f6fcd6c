package game

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultConfig []byte

// Config is the static content a session is initialised from.
type Config struct {
	Player struct {
		Username string `yaml:"username"`
		Coins    int    `yaml:"coins"`
		Lives    int    `yaml:"lives"`
		MaxLives int    `yaml:"max_lives"`
		Stars    int    `yaml:"stars"`
	} `yaml:"player"`
	Areas        []Area        `yaml:"areas"`
	Boosters     []Booster     `yaml:"boosters"`
	Events       []EventConfig `yaml:"events"`
	Team         *Team         `yaml:"team"`
	Settings     Settings      `yaml:"settings"`
	Inbox        []InboxConfig `yaml:"inbox"`
	DailyRewards []DailyReward `yaml:"daily_rewards"`
}

// EventConfig describes a LiveOps event. Active defaults to true.
type EventConfig struct {
	ID          string        `yaml:"id"`
	Type        EventType     `yaml:"type"`
	Name        string        `yaml:"name"`
	MaxProgress int           `yaml:"max_progress"`
	Duration    time.Duration `yaml:"duration"`
	Active      *bool         `yaml:"active"`
	Rewards     []Reward      `yaml:"rewards"`
}

// InboxConfig is an inbox message template.
type InboxConfig struct {
	Title  string  `yaml:"title"`
	Body   string  `yaml:"body"`
	Reward *Reward `yaml:"reward"`
}

// DefaultConfig returns the embedded default content.
func DefaultConfig() Config {
	cfg, err := LoadConfig(bytes.NewReader(defaultConfig))
	if err != nil {
		panic(fmt.Sprintf("game: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// LoadConfig parses and validates a YAML config document.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode game config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Player.MaxLives <= 0 {
		return fmt.Errorf("game config: max_lives must be positive")
	}
	seen := make(map[int]bool, len(c.Areas))
	for _, a := range c.Areas {
		if seen[a.ID] {
			return fmt.Errorf("game config: duplicate area id %d", a.ID)
		}
		seen[a.ID] = true
	}
	ids := make(map[string]bool, len(c.Events))
	for _, e := range c.Events {
		if !e.Type.Valid() {
			return fmt.Errorf("game config: event %q has unknown type %q", e.ID, e.Type)
		}
		if e.MaxProgress <= 0 {
			return fmt.Errorf("game config: event %q needs a positive max_progress", e.ID)
		}
		if ids[e.ID] {
			return fmt.Errorf("game config: duplicate event id %q", e.ID)
		}
		ids[e.ID] = true
	}
	return nil
}

// Placeholder is the deterministic state used before a client context
// exists: player defaults only, no events, inbox or random ids.
func Placeholder() *State {
	return &State{
		Player: PlayerState{
			Coins:        0,
			Lives:        5,
			MaxLives:     5,
			CurrentLevel: 1,
			CurrentArea:  1,
			Username:     "Player",
		},
		Areas:    []Area{},
		Boosters: []Booster{},
		Events:   []LiveOpsEvent{},
		Settings: Settings{Music: true, Sound: true, Notifications: true, Haptics: true, Language: "en"},
		Inbox:    []InboxMessage{},
		DailyRewards: DailyRewards{
			CurrentDay: 1,
			Days:       []DailyReward{},
		},
	}
}

// Initial builds the full, environment-dependent state: event end times are
// relative to now and inbox ids come from newID.
func Initial(cfg Config, now time.Time, newID func() string) *State {
	s := &State{
		Player: PlayerState{
			Coins:        cfg.Player.Coins,
			Lives:        clamp(cfg.Player.Lives, 0, cfg.Player.MaxLives),
			MaxLives:     cfg.Player.MaxLives,
			Stars:        cfg.Player.Stars,
			CurrentLevel: 1,
			CurrentArea:  1,
			Username:     cfg.Player.Username,
		},
		Settings:    cfg.Settings,
		Initialized: true,
	}

	s.Areas = make([]Area, len(cfg.Areas))
	for i, a := range cfg.Areas {
		a.Tasks = append([]AreaTask(nil), a.Tasks...)
		a.Unlocked = i == 0
		s.Areas[i] = a
	}
	if len(s.Areas) > 0 {
		s.Player.CurrentArea = s.Areas[0].ID
	}

	s.Boosters = append([]Booster{}, cfg.Boosters...)

	s.Events = make([]LiveOpsEvent, 0, len(cfg.Events))
	for _, e := range cfg.Events {
		ev := LiveOpsEvent{
			ID:          e.ID,
			Type:        e.Type,
			Name:        e.Name,
			MaxProgress: e.MaxProgress,
			Rewards:     append([]Reward(nil), e.Rewards...),
			Active:      e.Active == nil || *e.Active,
		}
		if e.Duration > 0 {
			end := now.Add(e.Duration)
			ev.EndTime = &end
		}
		s.Events = append(s.Events, ev)
	}

	if cfg.Team != nil {
		team := *cfg.Team
		team.Members = append([]TeamMember(nil), cfg.Team.Members...)
		s.Team = &team
		s.Player.TeamID = team.ID
	}

	s.Inbox = make([]InboxMessage, 0, len(cfg.Inbox))
	for i, m := range cfg.Inbox {
		msg := InboxMessage{
			ID:         newID(),
			Title:      m.Title,
			Body:       m.Body,
			ReceivedAt: now.Add(-time.Duration(i) * time.Hour),
		}
		if m.Reward != nil {
			r := *m.Reward
			msg.Reward = &r
		}
		s.Inbox = append(s.Inbox, msg)
	}

	s.DailyRewards = DailyRewards{
		CurrentDay: 1,
		Days:       append([]DailyReward{}, cfg.DailyRewards...),
	}
	return s
}
