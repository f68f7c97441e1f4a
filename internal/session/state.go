// Package session persists the per-user conversation state that lets a
// multi-step flow survive across independent updates.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Mode tags the flow a session belongs to.
type Mode string

const (
	ModeSearch       Mode = "search"
	ModeEpisodeInput Mode = "episode_input"
	ModeListen       Mode = "listen"
	ModeRequest      Mode = "request"
	ModeAdminAdd     Mode = "admin_add"
	ModeAdminUpdate  Mode = "admin_update"
	ModeAdminAddEp   Mode = "admin_add_ep"
)

// Stage marks the position inside a mode.
type Stage string

const (
	StageWaitingForQuery   Stage = "waiting_for_query"
	StageWaitingForEpisode Stage = "waiting_for_episode"
	StageWaitingForText    Stage = "waiting_for_text"
	StageAwaitTitle        Stage = "await_title"
	StageAwaitPhoto        Stage = "await_photo"
	StageAwaitDescription  Stage = "await_description"
	StageAwaitVision       Stage = "await_vision"
	StageAwaitLink         Stage = "await_link"
	StageAwaitShortlink    Stage = "await_shortlink"
)

// State is one variant of the session union. Each mode has its own payload type.
type State interface {
	Mode() Mode
	Stage() Stage
	// Admin reports whether handling the state requires admin rights.
	Admin() bool
}

// Search waits for a free-text story query.
type Search struct{}

// EpisodeInput waits for "N" or "A-B" for the chosen story.
type EpisodeInput struct {
	VisionID string `json:"vision_id"`
}

// Listen waits for "EpN" or "EpA-B" for the chosen story.
type Listen struct {
	VisionID string `json:"vision_id"`
}

// Request waits for a message to relay to the owner and admins.
type Request struct{}

// AdminAdd collects title, photo and description before a story is written.
type AdminAdd struct {
	Category    string `json:"category"`
	Step        Stage  `json:"step"`
	Title       string `json:"title,omitempty"`
	PhotoRef    string `json:"photo_ref,omitempty"`
	Description string `json:"description,omitempty"`
}

// AdminUpdate waits for the vision id of an existing story.
type AdminUpdate struct {
	Category string `json:"category"`
}

// AdminAddEpisode waits for the link of a single episode.
type AdminAddEpisode struct {
	VisionID string `json:"vision_id"`
	Episode  int    `json:"episode"`
}

// AdminAddRange waits for the shortlink covering Start..End.
type AdminAddRange struct {
	VisionID string `json:"vision_id"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

func (Search) Mode() Mode          { return ModeSearch }
func (EpisodeInput) Mode() Mode    { return ModeEpisodeInput }
func (Listen) Mode() Mode          { return ModeListen }
func (Request) Mode() Mode         { return ModeRequest }
func (AdminAdd) Mode() Mode        { return ModeAdminAdd }
func (AdminUpdate) Mode() Mode     { return ModeAdminUpdate }
func (AdminAddEpisode) Mode() Mode { return ModeAdminAddEp }
func (AdminAddRange) Mode() Mode   { return ModeAdminAddEp }

func (Search) Stage() Stage          { return StageWaitingForQuery }
func (EpisodeInput) Stage() Stage    { return StageWaitingForEpisode }
func (Listen) Stage() Stage          { return StageWaitingForEpisode }
func (Request) Stage() Stage         { return StageWaitingForText }
func (AdminUpdate) Stage() Stage     { return StageAwaitVision }
func (AdminAddEpisode) Stage() Stage { return StageAwaitLink }
func (AdminAddRange) Stage() Stage   { return StageAwaitShortlink }

// Stage defaults to await_title for a zero value.
func (a AdminAdd) Stage() Stage {
	if a.Step == "" {
		return StageAwaitTitle
	}
	return a.Step
}

func (Search) Admin() bool          { return false }
func (EpisodeInput) Admin() bool    { return false }
func (Listen) Admin() bool          { return false }
func (Request) Admin() bool         { return false }
func (AdminAdd) Admin() bool        { return true }
func (AdminUpdate) Admin() bool     { return true }
func (AdminAddEpisode) Admin() bool { return true }
func (AdminAddRange) Admin() bool   { return true }

// Session is one user's live state.
type Session struct {
	UserID    int64
	State     State
	CreatedAt time.Time
}

// Record is the storage form of a session.
type Record struct {
	UserID    int64
	Mode      Mode
	Stage     Stage
	Payload   []byte
	CreatedAt time.Time
}

// ErrUnknownState is returned by Decode for a mode/stage it cannot map.
var ErrUnknownState = errors.New("session: unknown mode/stage")

// Encode converts a session into its storage form.
func Encode(s Session) (Record, error) {
	if s.State == nil {
		return Record{}, fmt.Errorf("session: nil state for user %d", s.UserID)
	}
	payload, err := json.Marshal(s.State)
	if err != nil {
		return Record{}, fmt.Errorf("session: encode %s: %w", s.State.Mode(), err)
	}
	return Record{
		UserID:    s.UserID,
		Mode:      s.State.Mode(),
		Stage:     s.State.Stage(),
		Payload:   payload,
		CreatedAt: s.CreatedAt,
	}, nil
}

// Decode converts a stored record back into a typed session.
func Decode(r Record) (Session, error) {
	var (
		st  State
		err error
	)
	switch r.Mode {
	case ModeSearch:
		st = Search{}
	case ModeRequest:
		st = Request{}
	case ModeEpisodeInput:
		st, err = decodeAs[EpisodeInput](r.Payload)
	case ModeListen:
		st, err = decodeAs[Listen](r.Payload)
	case ModeAdminAdd:
		var a AdminAdd
		a, err = decodeAs[AdminAdd](r.Payload)
		if a.Step == "" {
			a.Step = r.Stage
		}
		st = a
	case ModeAdminUpdate:
		st, err = decodeAs[AdminUpdate](r.Payload)
	case ModeAdminAddEp:
		switch r.Stage {
		case StageAwaitLink:
			st, err = decodeAs[AdminAddEpisode](r.Payload)
		case StageAwaitShortlink:
			st, err = decodeAs[AdminAddRange](r.Payload)
		default:
			err = fmt.Errorf("%w: %s/%s", ErrUnknownState, r.Mode, r.Stage)
		}
	default:
		err = fmt.Errorf("%w: %s/%s", ErrUnknownState, r.Mode, r.Stage)
	}
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: r.UserID, State: st, CreatedAt: r.CreatedAt}, nil
}

func decodeAs[T State](payload []byte) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("session: decode %T: %w", v, err)
	}
	return v, nil
}
