package core

import "encoding/json"

// Event is the name of an inbound or outbound wire event.
type Event string

// Outbound.
const (
	EventOnlineUsers   Event = "online_users"
	EventUserOnline    Event = "user_online"
	EventUserOffline   Event = "user_offline"
	EventUserJoined    Event = "user_joined"
	EventUserLeft      Event = "user_left"
	EventChannelJoined Event = "channel_joined"
	EventChannelLeft   Event = "channel_left"
	EventMessage       Event = "message"
	EventMessageSent   Event = "message_sent"
	EventTyping        Event = "typing"
	EventTypingStop    Event = "typing_stop"
	EventMessageRead   Event = "message_read"
	EventMessagesRead  Event = "messages_read"
	EventError         Event = "error"
	EventPong          Event = "pong"
	EventWhoAmI        Event = "whoami"
)

// Inbound.
const (
	EventJoinChannel  Event = "join_channel"
	EventLeaveChannel Event = "leave_channel"
	EventSendMessage  Event = "send_message"
	EventTypingStart  Event = "typing_start"
	EventMarkRead     Event = "mark_read"
	EventMarkAllRead  Event = "mark_all_read"
	EventPing         Event = "ping"
	// typing_stop and whoami share their names with the outbound events.
)

// Envelope is the JSON shape of every frame in both directions.
type Envelope struct {
	Type Event           `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode renders one outbound event as a frame.
func Encode(ev Event, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: ev, Data: data})
}
