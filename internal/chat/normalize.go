// Package chat – identifier normalization.
//
// The platform returns numeric identifiers inconsistently: the same user id
// can arrive as a JSON string, an integer, or (after a lossy decode) a
// float. Everything downstream keys maps and database rows by these ids, so
// they are normalized to trimmed decimal strings at the boundary.
package chat

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NormalizeID converts a platform-supplied identifier of any JSON shape to
// a trimmed string. Numeric values are rendered without an exponent or
// fractional part; nil and unsupported types yield "".
func NormalizeID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return strings.TrimSpace(t.String())
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		// JSON decoding without UseNumber lands here. Platform ids fit in
		// the float64 integer range in practice.
		return strconv.FormatInt(int64(t), 10)
	default:
		return ""
	}
}

// Normalize trims every identifier carried by the event in place and
// returns the event for chaining.
func (e *Event) Normalize() *Event {
	e.MessageID = strings.TrimSpace(e.MessageID)
	e.SenderID = strings.TrimSpace(e.SenderID)
	e.ThreadID = strings.TrimSpace(e.ThreadID)
	e.ReplyToID = strings.TrimSpace(e.ReplyToID)
	for i, m := range e.Mentions {
		e.Mentions[i] = strings.TrimSpace(m)
	}
	for i, p := range e.ParticipantIDs {
		e.ParticipantIDs[i] = strings.TrimSpace(p)
	}
	return e
}
