package event

import "encoding/json"

// Outbound is an event pushed to client sessions.
type Outbound struct {
	Event Name
	Data  json.RawMessage
}

func (o Outbound) Encode() ([]byte, error) {
	return json.Marshal(Envelope{Event: o.Event, Data: o.Data})
}

func ConnectedAck() Outbound {
	return Outbound{Event: Connected}
}

// TypingNotice carries the chat id so a client with several chats open can
// tell which one is active.
func TypingNotice(chatID string) Outbound {
	return Outbound{Event: Typing, Data: quote(chatID)}
}

func StopTypingNotice(chatID string) Outbound {
	return Outbound{Event: StopTyping, Data: quote(chatID)}
}

// MessageReceivedEvent echoes the message document unchanged.
func MessageReceivedEvent(raw json.RawMessage) Outbound {
	return Outbound{Event: MessageReceived, Data: raw}
}

func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
