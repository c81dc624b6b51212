package sticker

// Event is the sealed set of inputs the machine understands.
type Event interface {
	isEvent()
}

// NameChosen carries the final pack name.
type NameChosen struct{ Name string }

// ImageReceived carries normalized image bytes.
type ImageReceived struct{ Image []byte }

// EmojisChosen carries the emoji tags as typed by the user.
type EmojisChosen struct{ Emojis string }

// TitleChosen carries the title of a new pack.
type TitleChosen struct{ Title string }

// UserConfirmed is produced by /publish and records who owns the pack.
type UserConfirmed struct{ UserID int64 }

// Noop leaves any state unchanged.
type Noop struct{}

func (NameChosen) isEvent()    {}
func (ImageReceived) isEvent() {}
func (EmojisChosen) isEvent()  {}
func (TitleChosen) isEvent()   {}
func (UserConfirmed) isEvent() {}
func (Noop) isEvent()          {}

// Start opens a conversation for the given target. Any previous state is discarded.
func Start(target Target) State {
	return AwaitingName{Target: target}
}

// Next applies ev to s. It is total: pairs without a rule return s unchanged.
func Next(s State, ev Event) State {
	switch cur := s.(type) {
	case AwaitingName:
		if e, ok := ev.(NameChosen); ok {
			return AwaitingSticker{Target: cur.Target, Name: e.Name}
		}
	case AwaitingSticker:
		if e, ok := ev.(ImageReceived); ok {
			return AwaitingEmojis{Target: cur.Target, Name: cur.Name, Image: e.Image}
		}
	case AwaitingEmojis:
		switch e := ev.(type) {
		case EmojisChosen:
			if cur.Target == New {
				return AwaitingTitle{Name: cur.Name, Image: cur.Image, Emojis: e.Emojis}
			}
			cur.Emojis = e.Emojis
			return cur
		case UserConfirmed:
			if cur.Target == Existing && cur.Emojis != "" {
				return ReadyToPublish{
					Target:  Existing,
					OwnerID: e.UserID,
					Name:    cur.Name,
					Image:   cur.Image,
					Emojis:  cur.Emojis,
				}
			}
		}
	case AwaitingTitle:
		switch e := ev.(type) {
		case TitleChosen:
			cur.Title = e.Title
			return cur
		case UserConfirmed:
			if cur.Title != "" {
				title := cur.Title
				return ReadyToPublish{
					Target:  New,
					OwnerID: e.UserID,
					Name:    cur.Name,
					Image:   cur.Image,
					Emojis:  cur.Emojis,
					Title:   &title,
				}
			}
		}
	}
	return s
}

// IsPublishable reports whether s holds everything needed to publish.
func IsPublishable(s State) bool {
	_, ok := s.(ReadyToPublish)
	return ok
}

// AcceptsImage reports whether s is waiting for the sticker image.
func AcceptsImage(s State) bool {
	_, ok := s.(AwaitingSticker)
	return ok
}

// Confirmable reports whether /publish should be turned into UserConfirmed for s.
func Confirmable(s State) bool {
	switch s.(type) {
	case AwaitingEmojis, AwaitingTitle:
		return true
	}
	return false
}

// TextEvent maps free text to the event the current state expects.
func TextEvent(s State, text string) Event {
	switch s.(type) {
	case AwaitingName:
		return NameChosen{Name: text}
	case AwaitingEmojis:
		return EmojisChosen{Emojis: text}
	case AwaitingTitle:
		return TitleChosen{Title: text}
	}
	return Noop{}
}

// Prompt texts shown to the user.
const (
	PromptName    = "Send name:"
	PromptSticker = "Send photo or sticker:"
	PromptEmojis  = "Send emoji:"
	PromptTitle   = "Send title:"
	PromptPublish = "Send /publish"
	PromptIdle    = "Send /new_pack or /add_to_pack"
)

// PromptFor returns the instruction for the step s is waiting on.
func PromptFor(s State) string {
	switch cur := s.(type) {
	case AwaitingName:
		return PromptName
	case AwaitingSticker:
		return PromptSticker
	case AwaitingEmojis:
		if cur.Target == Existing && cur.Emojis != "" {
			return PromptPublish
		}
		return PromptEmojis
	case AwaitingTitle:
		if cur.Title != "" {
			return PromptPublish
		}
		return PromptTitle
	case ReadyToPublish:
		return PromptPublish
	}
	return PromptIdle
}
