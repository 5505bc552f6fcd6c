package game

import (
	"encoding/json"
	"fmt"
	"time"

	perrors "github.com/p-blackswan/playcraft/internal/errors"
)

// Action is one of the closed set of game state transitions.
type Action interface {
	// Type returns the wire name of the action.
	Type() string
	gameAction()
}

// Wire names.
const (
	ActionUpdateCoins         = "UPDATE_COINS"
	ActionUpdateLives         = "UPDATE_LIVES"
	ActionUpdateStars         = "UPDATE_STARS"
	ActionCompleteLevel       = "COMPLETE_LEVEL"
	ActionCompleteTask        = "COMPLETE_TASK"
	ActionUseBooster          = "USE_BOOSTER"
	ActionAddBooster          = "ADD_BOOSTER"
	ActionUpdateEventProgress = "UPDATE_EVENT_PROGRESS"
	ActionUpdateSettings      = "UPDATE_SETTINGS"
	ActionClaimInboxMessage   = "CLAIM_INBOX_MESSAGE"
	ActionClaimDailyReward    = "CLAIM_DAILY_REWARD"
	ActionUpdateTeamProgress  = "UPDATE_TEAM_PROGRESS"
)

type UpdateCoins struct {
	Delta int `json:"delta"`
}

type UpdateLives struct {
	Delta int `json:"delta"`
}

type UpdateStars struct {
	Delta int `json:"delta"`
}

// CompleteLevel advances the level and grants the level's stars and coins.
type CompleteLevel struct {
	Stars int `json:"stars"`
	Coins int `json:"coins"`
}

type CompleteTask struct {
	AreaID int    `json:"area_id"`
	TaskID string `json:"task_id"`
}

type UseBooster struct {
	BoosterID BoosterID `json:"booster_id"`
}

type AddBooster struct {
	BoosterID BoosterID `json:"booster_id"`
	Count     int       `json:"count"`
}

type UpdateEventProgress struct {
	EventID string `json:"event_id"`
	Delta   int    `json:"delta"`
}

// UpdateSettings patches the settings; nil fields are left unchanged.
type UpdateSettings struct {
	Music         *bool   `json:"music,omitempty"`
	Sound         *bool   `json:"sound,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
	Haptics       *bool   `json:"haptics,omitempty"`
	Language      *string `json:"language,omitempty"`
}

type ClaimInboxMessage struct {
	MessageID string `json:"message_id"`
}

// ClaimDailyReward claims the reward of Day. At is stamped by the Store
// when left zero.
type ClaimDailyReward struct {
	Day int       `json:"day"`
	At  time.Time `json:"-"`
}

type UpdateTeamProgress struct {
	Delta int `json:"delta"`
}

func (UpdateCoins) Type() string         { return ActionUpdateCoins }
func (UpdateLives) Type() string         { return ActionUpdateLives }
func (UpdateStars) Type() string         { return ActionUpdateStars }
func (CompleteLevel) Type() string       { return ActionCompleteLevel }
func (CompleteTask) Type() string        { return ActionCompleteTask }
func (UseBooster) Type() string          { return ActionUseBooster }
func (AddBooster) Type() string          { return ActionAddBooster }
func (UpdateEventProgress) Type() string { return ActionUpdateEventProgress }
func (UpdateSettings) Type() string      { return ActionUpdateSettings }
func (ClaimInboxMessage) Type() string   { return ActionClaimInboxMessage }
func (ClaimDailyReward) Type() string    { return ActionClaimDailyReward }
func (UpdateTeamProgress) Type() string  { return ActionUpdateTeamProgress }

func (UpdateCoins) gameAction()         {}
func (UpdateLives) gameAction()         {}
func (UpdateStars) gameAction()         {}
func (CompleteLevel) gameAction()       {}
func (CompleteTask) gameAction()        {}
func (UseBooster) gameAction()          {}
func (AddBooster) gameAction()          {}
func (UpdateEventProgress) gameAction() {}
func (UpdateSettings) gameAction()      {}
func (ClaimInboxMessage) gameAction()   {}
func (ClaimDailyReward) gameAction()    {}
func (UpdateTeamProgress) gameAction()  {}

var decoders = map[string]func(json.RawMessage) (Action, error){
	ActionUpdateCoins:         decode[UpdateCoins],
	ActionUpdateLives:         decode[UpdateLives],
	ActionUpdateStars:         decode[UpdateStars],
	ActionCompleteLevel:       decode[CompleteLevel],
	ActionCompleteTask:        decode[CompleteTask],
	ActionUseBooster:          decode[UseBooster],
	ActionAddBooster:          decode[AddBooster],
	ActionUpdateEventProgress: decode[UpdateEventProgress],
	ActionUpdateSettings:      decode[UpdateSettings],
	ActionClaimInboxMessage:   decode[ClaimInboxMessage],
	ActionClaimDailyReward:    decode[ClaimDailyReward],
	ActionUpdateTeamProgress:  decode[UpdateTeamProgress],
}

// DecodeAction builds an Action from its wire name and JSON payload.
func DecodeAction(actionType string, payload json.RawMessage) (Action, error) {
	dec, ok := decoders[actionType]
	if !ok {
		return nil, perrors.Invalid("unknown game action %q", actionType)
	}
	a, err := dec(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", actionType, err)
	}
	return a, nil
}

func decode[T Action](payload json.RawMessage) (Action, error) {
	var v T
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, perrors.Invalid("malformed payload: %v", err)
		}
	}
	return v, nil
}
