package telegram

import "strings"

// Subset of the Bot API update object this bot cares about.
// https://core.telegram.org/bots/api#update
type Update struct {
	UpdateID int64    `json:"update_id" validate:"required"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64           `json:"message_id"`
	From      *User           `json:"from,omitempty"`
	Chat      Chat            `json:"chat"`
	Text      string          `json:"text,omitempty"`
	Entities  []MessageEntity `json:"entities,omitempty"`
}

type User struct {
	ID    int64 `json:"id"`
	IsBot bool  `json:"is_bot"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type MessageEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// Command returns the bot command of the message ("/publish") and the rest
// of the text as the argument, or empty strings for a plain message.
// The "@botname" suffix used in group chats is trimmed.
// Entity offsets and lengths are UTF-16 code units, not bytes
func (m *Message) Command() (command string, arg string) {
	for _, e := range m.Entities {
		if e.Type != "bot_command" || e.Offset != 0 {
			continue
		}

		end := utf16PrefixBytes(m.Text, e.Length)
		if end < 0 {
			return "", ""
		}

		command = m.Text[:end]
		if at := strings.Index(command, "@"); at != -1 {
			command = command[:at]
		}

		arg = strings.TrimSpace(m.Text[end:])
		return command, arg
	}

	return "", ""
}

// utf16PrefixBytes returns the byte length of the prefix of s that spans
// the given number of UTF-16 code units, or -1 if s is too short
func utf16PrefixBytes(s string, units int) int {
	n := 0
	for i, r := range s {
		if n >= units {
			return i
		}
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}

	if n >= units {
		return len(s)
	}
	return -1
}
