package dispatcher

// CommandSpec describes one registered slash command
type CommandSpec struct {
	Name        string
	Description string
	// Deferred marks commands whose upstream calls may exceed the
	// platform's synchronous reply budget. They are acknowledged
	// immediately and completed on the background path.
	Deferred bool
	// NeedsLink marks commands that require a linked media account
	NeedsLink bool
	// Limit is the per-user fixed-window admission limit; 0 uses the
	// default.
	Limit int
}

// retryComponentID identifies the "Try again" button on failure follow-ups
const retryComponentID = "retry"

// Registry is the fixed command table. Unknown names always take the
// immediate error path.
var Registry = map[string]CommandSpec{
	"help": {
		Name:        "help",
		Description: "Show what the bot can do",
	},
	"link": {
		Name:        "link",
		Description: "Link your music account",
		Limit:       5,
	},
	"ask": {
		Name:        "ask",
		Description: "Ask for music in plain language",
		Deferred:    true,
		NeedsLink:   true,
		Limit:       10,
	},
	"play": {
		Name:        "play",
		Description: "Play a song, album, or genre",
		Deferred:    true,
		NeedsLink:   true,
		Limit:       10,
	},
	"pause": {
		Name:        "pause",
		Description: "Pause playback",
		Deferred:    true,
		NeedsLink:   true,
	},
	"resume": {
		Name:        "resume",
		Description: "Resume playback",
		Deferred:    true,
		NeedsLink:   true,
	},
	"skip": {
		Name:        "skip",
		Description: "Skip the current track",
		Deferred:    true,
		NeedsLink:   true,
	},
	"status": {
		Name:        "status",
		Description: "Show what's playing",
		Deferred:    true,
		NeedsLink:   true,
	},
	retryComponentID: {
		Name:        retryComponentID,
		Description: "Retry the previous request",
		Deferred:    true,
		NeedsLink:   true,
		Limit:       10,
	},
}

// CommandLimits extracts the non-default per-command limits for the rate
// limiter's configuration table.
func CommandLimits() map[string]int {
	limits := make(map[string]int)
	for name, spec := range Registry {
		if spec.Limit > 0 {
			limits[name] = spec.Limit
		}
	}
	return limits
}
