// Package interaction defines the inbound command envelope and outbound
// response shapes for the chat platform's interactions webhook.
package interaction

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	apperrors "muse-backend/pkg/errors"
)

// Type identifies the kind of inbound interaction
type Type int

const (
	TypePing             Type = 1
	TypeCommand          Type = 2
	TypeMessageComponent Type = 3
)

// Interaction is the parsed inbound envelope. It is parsed once per request
// and treated as immutable afterwards; Token correlates the asynchronous
// follow-up with the original invocation.
type Interaction struct {
	Type      Type         `json:"type" validate:"required,min=1,max=3"`
	ID        string       `json:"id" validate:"required"`
	Token     string       `json:"token"`
	AppID     string       `json:"application_id"`
	GuildID   string       `json:"guild_id"`
	ChannelID string       `json:"channel_id"`
	Data      *Data        `json:"data"`
	Member    *Member      `json:"member"`
	User      *User        `json:"user"`
	Message   *MessageInfo `json:"message"`
}

// Data carries the command name and options, or the component identifier
type Data struct {
	Name     string   `json:"name"`
	CustomID string   `json:"custom_id"`
	Options  []Option `json:"options"`
}

// Option is a single command argument
type Option struct {
	Name  string          `json:"name"`
	Type  int             `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Member is the invoker inside a guild
type Member struct {
	User *User `json:"user"`
}

// User identifies the invoker
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// MessageInfo is the message a component interaction was attached to
type MessageInfo struct {
	ID string `json:"id"`
}

var validate = validator.New()

// Parse decodes and validates a raw interaction envelope. The raw body is
// expected to have been signature-verified already; Parse never inspects
// headers.
func Parse(raw []byte) (*Interaction, error) {
	var in Interaction
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, apperrors.NewValidationError("malformed interaction payload").WithCause(err)
	}
	if err := validate.Struct(&in); err != nil {
		return nil, apperrors.NewValidationError("invalid interaction envelope").WithCause(err)
	}
	return &in, nil
}

// UserID returns the invoker's user ID, whichever envelope field carries it.
// Guild invocations nest the user under member, DM invocations put it at the
// top level.
func (in *Interaction) UserID() string {
	if in.Member != nil && in.Member.User != nil {
		return in.Member.User.ID
	}
	if in.User != nil {
		return in.User.ID
	}
	return ""
}

// CommandName returns the invoked command name, or the component custom ID
// for component interactions.
func (in *Interaction) CommandName() string {
	if in.Data == nil {
		return ""
	}
	if in.Type == TypeMessageComponent {
		return in.Data.CustomID
	}
	return in.Data.Name
}

// StringOption returns the string value of a named option, or "" when the
// option is absent or not a string.
func (in *Interaction) StringOption(name string) string {
	if in.Data == nil {
		return ""
	}
	for _, opt := range in.Data.Options {
		if opt.Name != name {
			continue
		}
		var s string
		if err := json.Unmarshal(opt.Value, &s); err == nil {
			return s
		}
	}
	return ""
}

// ScopeKey identifies the conversation a memory entry belongs to
type ScopeKey struct {
	Conversation string
	Channel      string
	User         string
}

// Scope derives the memory scope for this interaction. Guild interactions
// scope by guild+channel+user; DMs have no guild so the channel stands in.
func (in *Interaction) Scope() ScopeKey {
	conversation := in.GuildID
	if conversation == "" {
		conversation = in.ChannelID
	}
	return ScopeKey{
		Conversation: conversation,
		Channel:      in.ChannelID,
		User:         in.UserID(),
	}
}
