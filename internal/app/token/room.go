package token

import (
	"strings"
	"time"
	"unicode"
)

// RoomTimestampLayout is the YYYYMMDDHHMMSS suffix of derived room names.
const RoomTimestampLayout = "20060102150405"

const fallbackRoomPrefix = "room"

// DeriveRoomName builds a default room name "{localPart}-{YYYYMMDDHHMMSS}" from an
// identity hint and the given instant (rendered in UTC).
//
// localPart is the text before the first "@" when the hint contains one, otherwise
// the whole hint. Whitespace runs become a single "-". Two calls with the same hint
// in the same second return the same name.
func DeriveRoomName(identityHint string, now time.Time) string {
	return localPart(identityHint) + "-" + now.UTC().Format(RoomTimestampLayout)
}

func localPart(hint string) string {
	if at := strings.IndexByte(hint, '@'); at >= 0 {
		hint = hint[:at]
	}

	fields := strings.FieldsFunc(hint, unicode.IsSpace)
	if len(fields) == 0 {
		return fallbackRoomPrefix
	}
	return strings.Join(fields, "-")
}
