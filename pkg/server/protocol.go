package server

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/eneky/projet-ui/internal/errors"
	"github.com/eneky/projet-ui/pkg/page"
)

// Client message types.
const (
	TypeHello  = "hello"
	TypeSubmit = "submit"
	TypeBlur   = "blur"
	TypeInput  = "input"
	TypeClick  = "click"
)

// ClientMessage is one frame sent by the browser.
type ClientMessage struct {
	Type string `json:"type"`

	// Hello fields.
	Path    string            `json:"path,omitempty"`
	Version string            `json:"version,omitempty"`
	Storage map[string]string `json:"storage,omitempty"`

	// Event fields.
	HID    string     `json:"hid,omitempty"`
	Value  string     `json:"value,omitempty"`
	Fields url.Values `json:"fields,omitempty"`
}

// ServerMessage is one frame sent to the browser.
type ServerMessage struct {
	Patches []page.Patch `json:"patches,omitempty"`
	// Reload asks the browser to fetch the page again, sent when the page
	// changed since it was served.
	Reload bool `json:"reload,omitempty"`
}

// DecodeMessage parses and checks a client frame.
func DecodeMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, errors.New("E400").Wrap(err)
	}

	switch msg.Type {
	case TypeHello:
		if msg.Path == "" {
			return msg, errors.New("E400").WithDetail("hello without a path")
		}
	case TypeSubmit, TypeBlur, TypeInput, TypeClick:
		if msg.HID == "" {
			return msg, errors.New("E400").WithDetail(msg.Type + " event without a target")
		}
	default:
		return msg, errors.New("E401").WithDetail("message type " + strconv.Quote(msg.Type))
	}
	return msg, nil
}
