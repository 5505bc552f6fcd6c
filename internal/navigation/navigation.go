// Package navigation is the Puzzle Kit screen state: the current page, a
// single level of back history and a stack of modals.
package navigation

import (
	"encoding/json"
	"fmt"

	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/statecontainer"
)

// Page is a full-screen destination.
type Page string

const (
	PageHome        Page = "home"
	PageLevelSelect Page = "level-select"
	PageGame        Page = "game"
	PageAreas       Page = "areas"
	PageEvents      Page = "events"
	PageTeam        Page = "team"
	PageShop        Page = "shop"
	PageProfile     Page = "profile"
	PageSettings    Page = "settings"
)

// Modal is an overlay stacked above the current page.
type Modal string

const (
	ModalDailyReward   Modal = "daily-reward"
	ModalInbox         Modal = "inbox"
	ModalEventDetails  Modal = "event-details"
	ModalBoosterInfo   Modal = "booster-info"
	ModalLevelStart    Modal = "level-start"
	ModalLevelComplete Modal = "level-complete"
	ModalLevelFailed   Modal = "level-failed"
	ModalOutOfLives    Modal = "out-of-lives"
	ModalSettings      Modal = "settings"
	ModalTeamChest     Modal = "team-chest"
)

var pages = map[Page]bool{
	PageHome: true, PageLevelSelect: true, PageGame: true, PageAreas: true,
	PageEvents: true, PageTeam: true, PageShop: true, PageProfile: true,
	PageSettings: true,
}

var modals = map[Modal]bool{
	ModalDailyReward: true, ModalInbox: true, ModalEventDetails: true,
	ModalBoosterInfo: true, ModalLevelStart: true, ModalLevelComplete: true,
	ModalLevelFailed: true, ModalOutOfLives: true, ModalSettings: true,
	ModalTeamChest: true,
}

// Valid reports whether p is a known page.
func (p Page) Valid() bool { return pages[p] }

// Valid reports whether m is a known modal.
func (m Modal) Valid() bool { return modals[m] }

// Params are free-form parameters attached to a page or modal.
type Params map[string]any

// State is the navigation state. PreviousPage is empty when there is nowhere
// to go back to; the last element of ModalStack is the visible modal.
type State struct {
	CurrentPage  Page    `json:"current_page"`
	PreviousPage Page    `json:"previous_page,omitempty"`
	ModalStack   []Modal `json:"modal_stack"`
	PageParams   Params  `json:"page_params"`
	ModalParams  Params  `json:"modal_params"`

	// params of each stacked modal, parallel to ModalStack
	modalParams []Params
}

// CurrentModal returns the topmost modal.
func (s *State) CurrentModal() (Modal, bool) {
	if len(s.ModalStack) == 0 {
		return "", false
	}
	return s.ModalStack[len(s.ModalStack)-1], true
}

// paramsStack returns the params of each stacked modal. Modals with no
// recorded params, such as those of a decoded snapshot, get empty params.
func (s *State) paramsStack() []Params {
	if len(s.modalParams) == len(s.ModalStack) {
		return s.modalParams
	}
	out := make([]Params, len(s.ModalStack))
	for i := range out {
		out[i] = Params{}
	}
	if len(out) > 0 {
		out[len(out)-1] = s.ModalParams
	}
	return out
}

// Initial is the state every session starts with.
func Initial() *State {
	return &State{
		CurrentPage: PageHome,
		ModalStack:  []Modal{},
		PageParams:  Params{},
		ModalParams: Params{},
	}
}

// Action is one of the navigation transitions.
type Action interface {
	Type() string
	navigationAction()
}

const (
	ActionNavigate       = "NAVIGATE"
	ActionGoBack         = "GO_BACK"
	ActionOpenModal      = "OPEN_MODAL"
	ActionCloseModal     = "CLOSE_MODAL"
	ActionCloseAllModals = "CLOSE_ALL_MODALS"
)

type Navigate struct {
	Page   Page   `json:"page"`
	Params Params `json:"params,omitempty"`
}

type GoBack struct{}

type OpenModal struct {
	Modal  Modal  `json:"modal"`
	Params Params `json:"params,omitempty"`
}

type CloseModal struct{}

type CloseAllModals struct{}

func (Navigate) Type() string       { return ActionNavigate }
func (GoBack) Type() string         { return ActionGoBack }
func (OpenModal) Type() string      { return ActionOpenModal }
func (CloseModal) Type() string     { return ActionCloseModal }
func (CloseAllModals) Type() string { return ActionCloseAllModals }

func (Navigate) navigationAction()       {}
func (GoBack) navigationAction()         {}
func (OpenModal) navigationAction()      {}
func (CloseModal) navigationAction()     {}
func (CloseAllModals) navigationAction() {}

// Reduce applies a to s without mutating it. No-ops return s.
func Reduce(s *State, a Action) *State {
	switch a := a.(type) {
	case Navigate:
		params := Params{}
		for k, v := range a.Params {
			params[k] = v
		}
		return &State{
			CurrentPage:  a.Page,
			PreviousPage: s.CurrentPage,
			ModalStack:   []Modal{},
			PageParams:   params,
			ModalParams:  Params{},
		}
	case GoBack:
		if s.PreviousPage == "" {
			return s
		}
		next := *s
		next.CurrentPage = s.PreviousPage
		next.PreviousPage = ""
		return &next
	case OpenModal:
		next := *s
		next.ModalStack = append(append(make([]Modal, 0, len(s.ModalStack)+1), s.ModalStack...), a.Modal)
		next.ModalParams = Params{}
		for k, v := range a.Params {
			next.ModalParams[k] = v
		}
		next.modalParams = append(append(make([]Params, 0, len(s.ModalStack)+1), s.paramsStack()...), next.ModalParams)
		return &next
	case CloseModal:
		if len(s.ModalStack) == 0 {
			return s
		}
		next := *s
		next.ModalStack = append([]Modal{}, s.ModalStack[:len(s.ModalStack)-1]...)
		next.ModalParams = Params{}
		next.modalParams = nil
		if n := len(next.ModalStack); n > 0 {
			next.modalParams = append([]Params{}, s.paramsStack()[:n]...)
			for k, v := range next.modalParams[n-1] {
				next.ModalParams[k] = v
			}
		}
		return &next
	case CloseAllModals:
		if len(s.ModalStack) == 0 {
			return s
		}
		next := *s
		next.ModalStack = []Modal{}
		next.ModalParams = Params{}
		next.modalParams = nil
		return &next
	}
	return s
}

var decoders = map[string]func(json.RawMessage) (Action, error){
	ActionNavigate: func(p json.RawMessage) (Action, error) {
		var a Navigate
		if err := unmarshal(p, &a); err != nil {
			return nil, err
		}
		if !a.Page.Valid() {
			return nil, perrors.Invalid("unknown page %q", a.Page)
		}
		return a, nil
	},
	ActionGoBack: func(json.RawMessage) (Action, error) { return GoBack{}, nil },
	ActionOpenModal: func(p json.RawMessage) (Action, error) {
		var a OpenModal
		if err := unmarshal(p, &a); err != nil {
			return nil, err
		}
		if !a.Modal.Valid() {
			return nil, perrors.Invalid("unknown modal %q", a.Modal)
		}
		return a, nil
	},
	ActionCloseModal:     func(json.RawMessage) (Action, error) { return CloseModal{}, nil },
	ActionCloseAllModals: func(json.RawMessage) (Action, error) { return CloseAllModals{}, nil },
}

// DecodeAction builds an Action from its wire name and JSON payload,
// rejecting unknown actions, pages and modals.
func DecodeAction(actionType string, payload json.RawMessage) (Action, error) {
	dec, ok := decoders[actionType]
	if !ok {
		return nil, perrors.Invalid("unknown navigation action %q", actionType)
	}
	a, err := dec(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", actionType, err)
	}
	return a, nil
}

func unmarshal(p json.RawMessage, v any) error {
	if len(p) == 0 {
		return nil
	}
	if err := json.Unmarshal(p, v); err != nil {
		return perrors.Invalid("malformed payload: %v", err)
	}
	return nil
}

// Listener observes committed navigation transitions.
type Listener = statecontainer.Listener[*State, Action]

// Store hosts one navigation state.
type Store struct {
	c *statecontainer.Container[*State, Action]
}

// NewStore returns a store positioned on the home page.
func NewStore() *Store {
	return &Store{c: statecontainer.New(Initial(), Reduce)}
}

func (s *Store) GetState() *State { return s.c.GetState() }

func (s *Store) Dispatch(a Action) *State { return s.c.Dispatch(a) }

func (s *Store) Subscribe(l Listener) func() { return s.c.Subscribe(l) }
