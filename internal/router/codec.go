package router

import (
	"encoding/json"
	"fmt"

	"github.com/rickgao/stockstream/internal/model"
)

// Decode parses one inbound frame. A frame is a JSON array whose elements
// are trade, aggregate or status objects. Decoding is all or nothing: if any
// element is malformed the whole frame is rejected with an error wrapping
// ErrInvalidFrame and no messages are returned.
func Decode(data []byte) ([]model.Message, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if elems == nil {
		return nil, fmt.Errorf("%w: not an array", ErrInvalidFrame)
	}

	msgs := make([]model.Message, 0, len(elems))
	for i, raw := range elems {
		msg, err := decodeElement(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidFrame, i, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func decodeElement(raw json.RawMessage) (model.Message, error) {
	var env envelopeWire
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Message{}, err
	}

	switch model.EventType(env.Ev) {
	case model.EventTrade:
		return decodeTrade(raw)
	case model.EventAggregate:
		return decodeAggregate(raw)
	case model.EventStatus:
		return decodeStatus(raw)
	default:
		return model.Message{}, fmt.Errorf("unknown event %q", env.Ev)
	}
}

func decodeTrade(raw json.RawMessage) (model.Message, error) {
	var w tradeWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Message{}, fmt.Errorf("trade: %w", err)
	}
	if f := w.missing(); f != "" {
		return model.Message{}, fmt.Errorf("trade: missing %q", f)
	}

	return model.Message{
		Event: model.EventTrade,
		Trade: &model.Trade{
			Symbol:     *w.Sym,
			ExchangeID: *w.Exchange,
			TradeID:    *w.ID,
			Tape:       *w.Tape,
			Price:      *w.Price,
			Size:       *w.Size,
			Conditions: w.Conditions,
			Timestamp:  *w.Timestamp,
			Sequence:   *w.Sequence,
		},
	}, nil
}

func decodeAggregate(raw json.RawMessage) (model.Message, error) {
	var w aggregateWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Message{}, fmt.Errorf("aggregate: %w", err)
	}
	if f := w.missing(); f != "" {
		return model.Message{}, fmt.Errorf("aggregate: missing %q", f)
	}

	return model.Message{
		Event: model.EventAggregate,
		Aggregate: &model.Aggregate{
			Symbol:            *w.Sym,
			Volume:            *w.Volume,
			AccumulatedVolume: w.AccumulatedVolume,
			OfficialOpen:      w.OfficialOpen,
			VWAP:              w.VWAP,
			Open:              *w.Open,
			Close:             *w.Close,
			High:              *w.High,
			Low:               *w.Low,
			VWAPToday:         w.VWAPToday,
			AverageTradeSize:  *w.AverageSize,
			StartTimestamp:    *w.Start,
			EndTimestamp:      *w.End,
		},
	}, nil
}

func decodeStatus(raw json.RawMessage) (model.Message, error) {
	var w statusWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Message{}, fmt.Errorf("status: %w", err)
	}
	if f := w.missing(); f != "" {
		return model.Message{}, fmt.Errorf("status: missing %q", f)
	}
	code := model.StatusCode(*w.Status)
	if !code.Valid() {
		return model.Message{}, fmt.Errorf("status: unknown code %q", code)
	}

	return model.Message{
		Event:  model.EventStatus,
		Status: &model.Status{Status: code, Message: *w.Message},
	}, nil
}
