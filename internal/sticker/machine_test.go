package sticker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var img = []byte{0x89, 'P', 'N', 'G'}

func allStates() []State {
	title := "T"
	return []State{
		Idle{},
		AwaitingName{Target: New},
		AwaitingName{Target: Existing},
		AwaitingSticker{Target: New, Name: "cats_by_bot"},
		AwaitingEmojis{Target: New, Name: "cats_by_bot", Image: img},
		AwaitingEmojis{Target: Existing, Name: "cats_by_bot", Image: img},
		AwaitingEmojis{Target: Existing, Name: "cats_by_bot", Image: img, Emojis: "😀"},
		AwaitingTitle{Name: "cats_by_bot", Image: img, Emojis: "😀"},
		AwaitingTitle{Name: "cats_by_bot", Image: img, Emojis: "😀", Title: "T"},
		ReadyToPublish{Target: New, OwnerID: 1, Name: "cats_by_bot", Image: img, Emojis: "😀", Title: &title},
	}
}

func allEvents() []Event {
	return []Event{
		NameChosen{Name: "dogs_by_bot"},
		ImageReceived{Image: img},
		EmojisChosen{Emojis: "🐶"},
		TitleChosen{Title: "Dogs"},
		UserConfirmed{UserID: 7},
		Noop{},
	}
}

func TestNextIsTotal(t *testing.T) {
	for _, s := range allStates() {
		for _, ev := range allEvents() {
			assert.NotPanics(t, func() { Next(s, ev) }, "%s %T", Kind(s), ev)
			assert.NotNil(t, Next(s, ev))
		}
	}
}

func TestNoopKeepsState(t *testing.T) {
	for _, s := range allStates() {
		assert.Equal(t, s, Next(s, Noop{}), Kind(s))
	}
}

func TestMismatchedEventsKeepState(t *testing.T) {
	cases := []struct {
		name  string
		state State
		event Event
	}{
		{"idle name", Idle{}, NameChosen{Name: "x"}},
		{"name image", AwaitingName{Target: New}, ImageReceived{Image: img}},
		{"sticker confirm", AwaitingSticker{Target: New, Name: "x"}, UserConfirmed{UserID: 1}},
		{"sticker emojis", AwaitingSticker{Target: New, Name: "x"}, EmojisChosen{Emojis: "😀"}},
		{"emojis new confirm", AwaitingEmojis{Target: New, Name: "x", Image: img}, UserConfirmed{UserID: 1}},
		{"emojis existing confirm without emojis", AwaitingEmojis{Target: Existing, Name: "x", Image: img}, UserConfirmed{UserID: 1}},
		{"title confirm without title", AwaitingTitle{Name: "x", Image: img, Emojis: "😀"}, UserConfirmed{UserID: 1}},
		{"ready title", ReadyToPublish{Target: Existing, Name: "x"}, TitleChosen{Title: "y"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.state, Next(tc.state, tc.event))
		})
	}
}

func TestNewPackPath(t *testing.T) {
	s := Start(New)
	require.Equal(t, AwaitingName{Target: New}, s)

	s = Next(s, NameChosen{Name: "P"})
	require.Equal(t, AwaitingSticker{Target: New, Name: "P"}, s)

	s = Next(s, ImageReceived{Image: img})
	require.Equal(t, AwaitingEmojis{Target: New, Name: "P", Image: img}, s)

	s = Next(s, EmojisChosen{Emojis: "😀"})
	require.Equal(t, AwaitingTitle{Name: "P", Image: img, Emojis: "😀"}, s)

	s = Next(s, TitleChosen{Title: "T"})
	require.False(t, IsPublishable(s))
	assert.Equal(t, PromptPublish, PromptFor(s))

	s = Next(s, UserConfirmed{UserID: 42})
	require.True(t, IsPublishable(s))
	ready := s.(ReadyToPublish)
	assert.Equal(t, New, ready.Target)
	assert.Equal(t, int64(42), ready.OwnerID)
	assert.Equal(t, "P", ready.Name)
	assert.Equal(t, img, ready.Image)
	assert.Equal(t, "😀", ready.Emojis)
	require.NotNil(t, ready.Title)
	assert.Equal(t, "T", *ready.Title)
}

func TestExistingPackPath(t *testing.T) {
	s := Next(Start(Existing), NameChosen{Name: "Q"})
	s = Next(s, ImageReceived{Image: img})

	// confirm before emojis is ignored
	require.Equal(t, s, Next(s, UserConfirmed{UserID: 1}))

	s = Next(s, EmojisChosen{Emojis: "🙂"})
	require.Equal(t, AwaitingEmojis{Target: Existing, Name: "Q", Image: img, Emojis: "🙂"}, s)
	assert.Equal(t, PromptPublish, PromptFor(s))

	s = Next(s, UserConfirmed{UserID: 1})
	ready, ok := s.(ReadyToPublish)
	require.True(t, ok)
	assert.Equal(t, Existing, ready.Target)
	assert.Nil(t, ready.Title)
	assert.Equal(t, "🙂", ready.Emojis)
}

func TestStartDiscardsProgress(t *testing.T) {
	assert.Equal(t, AwaitingName{Target: Existing}, Start(Existing))
	assert.Equal(t, AwaitingName{Target: New}, Start(New))
}

func TestOnlyReadyIsPublishable(t *testing.T) {
	for _, s := range allStates() {
		_, ready := s.(ReadyToPublish)
		assert.Equal(t, ready, IsPublishable(s), Kind(s))
	}
}

func TestPromptFor(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{Idle{}, PromptIdle},
		{AwaitingName{}, PromptName},
		{AwaitingSticker{}, PromptSticker},
		{AwaitingEmojis{Target: New}, PromptEmojis},
		{AwaitingEmojis{Target: Existing}, PromptEmojis},
		{AwaitingEmojis{Target: Existing, Emojis: "😀"}, PromptPublish},
		{AwaitingTitle{}, PromptTitle},
		{AwaitingTitle{Title: "x"}, PromptPublish},
		{ReadyToPublish{}, PromptPublish},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PromptFor(tc.state), Kind(tc.state))
	}
}

func TestTextEvent(t *testing.T) {
	assert.Equal(t, NameChosen{Name: "a"}, TextEvent(AwaitingName{}, "a"))
	assert.Equal(t, EmojisChosen{Emojis: "a"}, TextEvent(AwaitingEmojis{}, "a"))
	assert.Equal(t, TitleChosen{Title: "a"}, TextEvent(AwaitingTitle{}, "a"))
	assert.Equal(t, Noop{}, TextEvent(AwaitingSticker{}, "a"))
	assert.Equal(t, Noop{}, TextEvent(ReadyToPublish{}, "a"))
}

func TestConfirmable(t *testing.T) {
	assert.True(t, Confirmable(AwaitingEmojis{}))
	assert.True(t, Confirmable(AwaitingTitle{}))
	assert.False(t, Confirmable(AwaitingSticker{}))
	assert.False(t, Confirmable(ReadyToPublish{}))
	assert.False(t, Confirmable(Idle{}))
}

func TestEventKind(t *testing.T) {
	assert.Equal(t, "name_chosen", EventKind(NameChosen{}))
	assert.Equal(t, "image_received", EventKind(ImageReceived{}))
	assert.Equal(t, "user_confirmed", EventKind(UserConfirmed{}))
	assert.Equal(t, "noop", EventKind(Noop{}))
	assert.Equal(t, "unknown", EventKind(nil))
}
