package api

import (
	"encoding/json"
	"fmt"
)

const (
	MessageType_Wildcard           = "*"
	MessageType_Auth               = "auth"
	MessageType_Notification       = "notification"
	MessageType_NotificationRecall = "notification-recall"

	NotificationAction_New    = "new"
	NotificationAction_Recall = "recall"
)

// Message is an inbound frame. Data holds every decoded field, including type
// and action, so listeners can read payload fields the typed struct doesn't name.
type Message struct {
	Type_  string                 `json:"type"`
	Action string                 `json:"action,omitempty"`
	Data   map[string]interface{} `json:"-"`
	Raw    json.RawMessage        `json:"-"`
}

// ParseMessage decodes a text frame. Frames without a type discriminator are rejected.
func ParseMessage(raw []byte) (Message, error) {
	msg := Message{}
	if err := json.Unmarshal(raw, &msg.Data); err != nil {
		return msg, err
	}
	if msg.Data == nil {
		return msg, fmt.Errorf("frame is not a JSON object")
	}
	t, ok := msg.Data["type"].(string)
	if !ok || t == "" {
		return msg, fmt.Errorf("frame is missing a type: %s", string(raw))
	}
	msg.Type_ = t
	if action, ok := msg.Data["action"].(string); ok {
		msg.Action = action
	}
	msg.Raw = append(json.RawMessage(nil), raw...)
	return msg, nil
}

// Decode unmarshals the raw frame into v.
func (m Message) Decode(v interface{}) error {
	if len(m.Raw) == 0 {
		return fmt.Errorf("message %q has no raw payload", m.Type_)
	}
	return json.Unmarshal(m.Raw, v)
}

func (m Message) IsRecall() bool {
	return m.Type_ == MessageType_Notification && m.Action == NotificationAction_Recall
}

type RecallEvent struct {
	Id      interface{} `json:"id"`
	Message interface{} `json:"message"`
}

// NewRecallMessage builds the synthesized notification-recall message for a
// recall notification frame.
func NewRecallMessage(source Message) (Message, error) {
	event := RecallEvent{
		Id:      source.Data["id"],
		Message: source.Data["message"],
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Type_: MessageType_NotificationRecall,
		Data: map[string]interface{}{
			"id":      event.Id,
			"message": event.Message,
		},
		Raw: raw,
	}, nil
}

type AuthFrame struct {
	Type_ string `json:"type"`
	Token string `json:"token"`
}
