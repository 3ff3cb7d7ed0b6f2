package bot

import (
	"errors"
	"fmt"
)

// EventType tells the dispatcher how to read an Event.
type EventType string

const (
	EventStart    EventType = "start"
	EventText     EventType = "text"
	EventMenu     EventType = "menu"
	EventCallback EventType = "callback"
)

// Event is one inbound chat interaction.
type Event struct {
	UserID int64     `json:"user_id"`
	Type   EventType `json:"type"`
	Text   string    `json:"text,omitempty"`
	Action Action    `json:"action,omitempty"`
	Data   string    `json:"data,omitempty"`
}

var (
	ErrMissingUser  = errors.New("event has no user")
	ErrUnknownEvent = errors.New("unknown event type")
	ErrUnknownMenu  = errors.New("unknown menu action")
)

// Validate checks the fields required by the event type.
func (e Event) Validate() error {
	if e.UserID == 0 {
		return ErrMissingUser
	}
	switch e.Type {
	case EventStart, EventText, EventCallback:
		return nil
	case EventMenu:
		if !e.Action.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownMenu, string(e.Action))
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, string(e.Type))
	}
}

// Button is an inline action under a message.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Chart is one series for the external renderer. Dates and Values have the
// same length and are in ascending date order.
type Chart struct {
	Title  string    `json:"title"`
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
}

// Response is what the transport delivers back to the user.
type Response struct {
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
	Charts  []Chart    `json:"charts,omitempty"`
	// Menu asks the transport to attach the main menu keyboard.
	Menu bool `json:"menu,omitempty"`
	// EditOriginal replaces the message the callback came from.
	EditOriginal bool `json:"edit_original,omitempty"`
}

func textResponse(text string) Response {
	return Response{Text: text}
}

func menuResponse(text string) Response {
	return Response{Text: text, Menu: true}
}
