package transport

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// Message is an inbound payload as decoded at the transport boundary:
// either RawText or Structured.
type Message interface {
	Result() Result
}

// RawText is a plain text frame carrying the utterance.
type RawText string

func (m RawText) Result() Result {
	return Result{Text: string(m)}
}

// Structured is a JSON payload with at least a text field. Time and
// Timestamp are kept when the backend provides them.
type Structured struct {
	Text      string
	Time      string
	Timestamp string
}

func (m Structured) Result() Result {
	return Result{Text: m.Text, Time: m.Time, Timestamp: m.Timestamp, Structured: true}
}

// Result is the normalized transcription result handed to the controller.
type Result struct {
	Text       string
	Time       string
	Timestamp  string
	Structured bool
}

// ParseError reports a malformed inbound payload; the stream continues.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse transcription message: %s: %v", e.Reason, e.Err)
	}
	return "parse transcription message: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Decode turns a websocket frame into a Message.
func Decode(messageType int, data []byte) (Message, error) {
	if messageType != websocket.TextMessage {
		return nil, &ParseError{Reason: fmt.Sprintf("unexpected frame type %d", messageType)}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return RawText(data), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &ParseError{Reason: "invalid json", Err: err}
	}
	rawText, ok := fields["text"]
	if !ok {
		return nil, &ParseError{Reason: "missing text field"}
	}

	var msg Structured
	if err := json.Unmarshal(rawText, &msg.Text); err != nil {
		return nil, &ParseError{Reason: "text field is not a string", Err: err}
	}
	// optional metadata, ignored when not a string
	if raw, ok := fields["time"]; ok {
		_ = json.Unmarshal(raw, &msg.Time)
	}
	if raw, ok := fields["timestamp"]; ok {
		_ = json.Unmarshal(raw, &msg.Timestamp)
	}
	return msg, nil
}
