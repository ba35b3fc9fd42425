package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Message represents a JSON-RPC 2.0 message (request, response, or notification).
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// RPCError is the error object carried by a failed response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewRequest builds a request envelope with a numeric id.
func NewRequest(id int64, method string, params any) (*Message, error) {
	msg := &Message{
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		msg.Params = data
	}
	return msg, nil
}

// NewNotification builds a notification envelope (no id, no response expected).
func NewNotification(method string, params any) (*Message, error) {
	msg := &Message{
		JSONRPC: "2.0",
		Method:  method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		msg.Params = data
	}
	return msg, nil
}

func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse JSON-RPC message: %w", err)
	}
	return &msg, nil
}

// IsRequest returns true if message has both id and method (a request).
func (m *Message) IsRequest() bool {
	return len(m.ID) > 0 && m.Method != ""
}

// IsResponse returns true if message has id but no method (a response).
func (m *Message) IsResponse() bool {
	return len(m.ID) > 0 && m.Method == ""
}

// IsNotification returns true if message has method but no id.
func (m *Message) IsNotification() bool {
	return len(m.ID) == 0 && m.Method != ""
}

// ValidResponse reports whether the message carries exactly one of
// result/error. The protocol requires this of every response, so it is the
// first thing checked on each reply.
func (m *Message) ValidResponse() bool {
	return m.IsResponse() && (len(m.Result) > 0) != (len(m.Error) > 0)
}

// IDEquals reports whether the message id matches the given numeric id.
// A server echoing a different id than the one sent is a protocol failure.
func (m *Message) IDEquals(id int64) bool {
	return bytes.Equal(bytes.TrimSpace(m.ID), []byte(strconv.FormatInt(id, 10)))
}

// ErrorObject decodes the error member, if present.
func (m *Message) ErrorObject() (*RPCError, bool) {
	if len(m.Error) == 0 {
		return nil, false
	}
	var e RPCError
	if err := json.Unmarshal(m.Error, &e); err != nil {
		return nil, false
	}
	return &e, true
}

func (m *Message) Serialize() ([]byte, error) {
	return json.Marshal(m)
}
