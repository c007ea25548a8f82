package router

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrInvalidFrame is returned by Decode when a frame fails validation.
var ErrInvalidFrame = errors.New("invalid frame")

// Outbound action names.
const (
	ActionAuth        = "auth"
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Action is an outbound control frame: {"action":"...","params":"..."}.
type Action struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

// EncodeAction renders an Action frame. HTML escaping is disabled so the
// params string reaches the vendor byte for byte.
func EncodeAction(action, params string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Action{Action: action, Params: params}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// -----------------------------------------------------------------------------
// Wire formats (internal, for JSON parsing)
// -----------------------------------------------------------------------------

// Pointer fields distinguish an absent required field from a zero value.

type envelopeWire struct {
	Ev string `json:"ev"`
}

type tradeWire struct {
	Sym        *string  `json:"sym"`
	Exchange   *int     `json:"x"`
	ID         *string  `json:"i"`
	Tape       *int     `json:"z"`
	Price      *float64 `json:"p"`
	Size       *float64 `json:"s"`
	Conditions []int    `json:"c"`
	Timestamp  *int64   `json:"t"`
	Sequence   *int64   `json:"q"`
}

func (w *tradeWire) missing() string {
	switch {
	case w.Sym == nil:
		return "sym"
	case w.Exchange == nil:
		return "x"
	case w.ID == nil:
		return "i"
	case w.Tape == nil:
		return "z"
	case w.Price == nil:
		return "p"
	case w.Size == nil:
		return "s"
	case w.Timestamp == nil:
		return "t"
	case w.Sequence == nil:
		return "q"
	}
	return ""
}

type aggregateWire struct {
	Sym               *string  `json:"sym"`
	Volume            *float64 `json:"v"`
	AccumulatedVolume *float64 `json:"av"`
	OfficialOpen      *float64 `json:"op"`
	VWAP              *float64 `json:"vw"`
	Open              *float64 `json:"o"`
	Close             *float64 `json:"c"`
	High              *float64 `json:"h"`
	Low               *float64 `json:"l"`
	VWAPToday         *float64 `json:"a"`
	AverageSize       *float64 `json:"z"`
	Start             *int64   `json:"s"`
	End               *int64   `json:"e"`
}

func (w *aggregateWire) missing() string {
	switch {
	case w.Sym == nil:
		return "sym"
	case w.Volume == nil:
		return "v"
	case w.Open == nil:
		return "o"
	case w.Close == nil:
		return "c"
	case w.High == nil:
		return "h"
	case w.Low == nil:
		return "l"
	case w.AverageSize == nil:
		return "z"
	case w.Start == nil:
		return "s"
	case w.End == nil:
		return "e"
	}
	return ""
}

type statusWire struct {
	Status  *string `json:"status"`
	Message *string `json:"message"`
}

func (w *statusWire) missing() string {
	switch {
	case w.Status == nil:
		return "status"
	case w.Message == nil:
		return "message"
	}
	return ""
}
