// Package sticker holds the per-user conversation state machine used to build a sticker
// pack entry step by step. Everything here is pure: no I/O, no clocks, no globals.
package sticker

// Target tells whether the conversation creates a new pack or extends an existing one.
type Target int

const (
	// New creates a fresh sticker set on publish.
	New Target = iota
	// Existing adds the sticker to a set the user already owns.
	Existing
)

// String returns the wire name of the target.
func (t Target) String() string {
	if t == Existing {
		return "existing"
	}
	return "new"
}

// State is the sealed set of conversation steps. The concrete variants are the
// exported structs in this file; callers branch on them with a type switch.
type State interface {
	isState()
}

// Idle means no pack is in progress.
type Idle struct{}

// AwaitingName waits for the pack name (typed or picked from the keyboard).
type AwaitingName struct {
	Target Target
}

// AwaitingSticker waits for the image that becomes the sticker.
type AwaitingSticker struct {
	Target Target
	Name   string
}

// AwaitingEmojis waits for the emoji tags. For existing packs the emojis are kept
// here until the user confirms.
type AwaitingEmojis struct {
	Target Target
	Name   string
	Image  []byte
	Emojis string
}

// AwaitingTitle waits for the title of a new pack and keeps it until confirmation.
type AwaitingTitle struct {
	Name   string
	Image  []byte
	Emojis string
	Title  string
}

// ReadyToPublish carries everything the publisher needs. Title is nil when the
// sticker goes into an existing pack.
type ReadyToPublish struct {
	Target  Target
	OwnerID int64
	Name    string
	Image   []byte
	Emojis  string
	Title   *string
}

func (Idle) isState()            {}
func (AwaitingName) isState()    {}
func (AwaitingSticker) isState() {}
func (AwaitingEmojis) isState()  {}
func (AwaitingTitle) isState()   {}
func (ReadyToPublish) isState()  {}

// Kind returns a stable lowercase name for the variant, used in logs and storage.
func Kind(s State) string {
	switch s.(type) {
	case Idle:
		return "idle"
	case AwaitingName:
		return "awaiting_name"
	case AwaitingSticker:
		return "awaiting_sticker"
	case AwaitingEmojis:
		return "awaiting_emojis"
	case AwaitingTitle:
		return "awaiting_title"
	case ReadyToPublish:
		return "ready_to_publish"
	default:
		return "unknown"
	}
}

// EventKind names an event for logs.
func EventKind(e Event) string {
	switch e.(type) {
	case NameChosen:
		return "name_chosen"
	case ImageReceived:
		return "image_received"
	case EmojisChosen:
		return "emojis_chosen"
	case TitleChosen:
		return "title_chosen"
	case UserConfirmed:
		return "user_confirmed"
	case Noop:
		return "noop"
	default:
		return "unknown"
	}
}
