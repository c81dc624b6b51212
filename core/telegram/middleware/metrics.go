package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const (
	keyMessages = "messages"
	keyKeyboard = "kb"
)

// metricsContext counts the replies a handler sends and whether any of them
// showed a keyboard.
type metricsContext struct{ tele.Context }

func (m metricsContext) track(opts []interface{}) {
	n, _ := m.Get(keyMessages).(int)
	m.Set(keyMessages, n+1)
	if hasKeyboard(opts) {
		m.Set(keyKeyboard, true)
	}
}

// hasKeyboard reports whether opts carry reply or inline buttons. Removing a
// keyboard does not count.
func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		var markup *tele.ReplyMarkup
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil {
				markup = v.ReplyMarkup
			}
		case *tele.ReplyMarkup:
			markup = v
		}
		if markup != nil && (len(markup.ReplyKeyboard) > 0 || len(markup.InlineKeyboard) > 0) {
			return true
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.track(opts)
	}
	return err
}

// Reply proxies tele.Context.Reply while updating counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.track(opts)
	}
	return err
}

// MessageMetricsMiddleware instruments the context so handler summaries can
// report how many replies were sent.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(keyMessages, 0)
		c.Set(keyKeyboard, false)
		return next(metricsContext{Context: c})
	}
}

// GetCounters reads the reply count and keyboard flag from c.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(keyMessages).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return msgs, kb
}
