package thread

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"Agora/internal/api/handlers"
	"Agora/internal/core/threads"
)

const (
	// MaxMessages bounds a single build request
	MaxMessages = 10_000

	maxBodyBytes = 8 << 20
)

// MessageID is a message id as it appeared on the wire, a JSON string or number.
// It is kept in its canonical JSON form so 1 and "1" stay distinct and
// re-encode exactly as sent.
type MessageID string

// UnmarshalJSON accepts string and number ids
func (id *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty id")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		canonical, err := json.Marshal(s)
		if err != nil {
			return err
		}
		*id = MessageID(canonical)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a string or number")
		}
		*id = MessageID(n.String())
	}
	return nil
}

// MarshalJSON writes the id back in its original JSON form
func (id MessageID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return []byte(id), nil
}

// wireMessage is one flat message. Everything besides id and replyToId is
// carried through untouched as the node payload.
type wireMessage struct {
	ReplyToID *MessageID `json:"replyToId"`
	ID        *MessageID `json:"id"`
}

type buildRequest struct {
	Messages []json.RawMessage `json:"messages"`
}

type buildResponse struct {
	Threads []*threads.Node[MessageID, json.RawMessage] `json:"threads"`
	Count   int                                         `json:"count"`
	Depth   int                                         `json:"depth"`
}

// HandleBuild turns a flat message list into reply trees
// POST /xrpc/agora.thread.build {"messages": [{"id": 1, "replyToId": null, ...}]}
func HandleBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req buildRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}
	if len(req.Messages) > MaxMessages {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest",
			fmt.Sprintf("at most %d messages per request", MaxMessages))
		return
	}

	messages, err := ParseMessages(req.Messages)
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	roots := threads.Build(messages)
	handlers.WriteJSON(w, buildResponse{
		Threads: roots,
		Count:   threads.Count(roots),
		Depth:   threads.Depth(roots),
	})
}

// ParseMessages decodes raw message objects into builder input.
// Each message's full object becomes its payload.
func ParseMessages(raw []json.RawMessage) ([]threads.Message[MessageID, json.RawMessage], error) {
	messages := make([]threads.Message[MessageID, json.RawMessage], 0, len(raw))
	for i, item := range raw {
		var wm wireMessage
		if err := json.Unmarshal(item, &wm); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		if wm.ID == nil {
			return nil, fmt.Errorf("message %d: id is required", i)
		}
		messages = append(messages, threads.Message[MessageID, json.RawMessage]{
			ID:        *wm.ID,
			ReplyToID: wm.ReplyToID,
			Payload:   item,
		})
	}
	return messages, nil
}
