package interaction

// ResponseType selects how the platform renders the reply
type ResponseType int

const (
	// ResponsePong acknowledges a ping
	ResponsePong ResponseType = 1
	// ResponseMessage replies immediately with a message
	ResponseMessage ResponseType = 4
	// ResponseDeferred acknowledges now and promises a follow-up
	ResponseDeferred ResponseType = 5
)

// FlagEphemeral makes a reply visible only to the invoker
const FlagEphemeral = 1 << 6

// Response is the synchronous reply to an interaction
type Response struct {
	Type ResponseType  `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

// ResponseData is the message portion of a response
type ResponseData struct {
	Content    string      `json:"content,omitempty"`
	Flags      int         `json:"flags,omitempty"`
	Components []ActionRow `json:"components,omitempty"`
}

// ActionRow groups interactive components on one line
type ActionRow struct {
	Type       int      `json:"type"`
	Components []Button `json:"components"`
}

// Button is a clickable component; clicking it produces a component
// interaction carrying CustomID.
type Button struct {
	Type     int    `json:"type"`
	Style    int    `json:"style"`
	Label    string `json:"label"`
	CustomID string `json:"custom_id"`
}

// Pong acknowledges a ping
func Pong() *Response {
	return &Response{Type: ResponsePong}
}

// Message builds an immediate message reply
func Message(content string) *Response {
	return &Response{
		Type: ResponseMessage,
		Data: &ResponseData{Content: content},
	}
}

// Ephemeral builds an immediate reply visible only to the invoker
func Ephemeral(content string) *Response {
	return &Response{
		Type: ResponseMessage,
		Data: &ResponseData{Content: content, Flags: FlagEphemeral},
	}
}

// Deferred builds a deferred acknowledgment; the real result arrives later
// via the follow-up channel.
func Deferred() *Response {
	return &Response{Type: ResponseDeferred}
}

// RetryRow builds an action row with a single "Try again" button that
// re-invokes the given command as a component interaction.
func RetryRow(commandID string) ActionRow {
	return ActionRow{
		Type: 1,
		Components: []Button{
			{Type: 2, Style: 2, Label: "Try again", CustomID: commandID},
		},
	}
}
