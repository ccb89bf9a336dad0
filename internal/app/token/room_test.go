package token

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestDeriveRoomName(t *testing.T) {
	at := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		hint string
		want string
	}{
		{"alice@example.com", "alice-20250102030405"},
		{"alice", "alice-20250102030405"},
		{"first.last+tag@example.com", "first.last+tag-20250102030405"},
		{"a@b@c", "a-20250102030405"},
		{"Sarah Johnson", "Sarah-Johnson-20250102030405"},
		{"  spaced \t out  @example.com", "spaced-out-20250102030405"},
		{"@example.com", "room-20250102030405"},
		{"", "room-20250102030405"},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			got := DeriveRoomName(tt.hint, at)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.ContainsFunc(got, unicode.IsSpace))
		})
	}
}

func TestDeriveRoomName_Determinism(t *testing.T) {
	at := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

	first := DeriveRoomName("alice@example.com", at)
	second := DeriveRoomName("alice@example.com", at.Add(999*time.Millisecond))
	assert.Equal(t, first, second, "same wall-clock second")

	later := DeriveRoomName("alice@example.com", at.Add(time.Second))
	assert.NotEqual(t, first, later)
	assert.Equal(t, "alice-20250102030406", later)
}

func TestDeriveRoomName_RendersUTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	at := time.Date(2025, time.January, 2, 12, 0, 0, 0, tokyo)

	assert.Equal(t, "alice-20250102030000", DeriveRoomName("alice@example.com", at))
}
