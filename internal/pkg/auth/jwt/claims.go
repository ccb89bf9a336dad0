package jwt

import "github.com/golang-jwt/jwt"

// VideoGrant is the capability set a token grants inside a single room.
// Boolean grants are always serialized so that a false value is explicit.
type VideoGrant struct {
	// Room is the room the holder may join. Never empty on an issued token.
	Room string `json:"room"`

	// RoomJoin allows the holder to join Room. Always true on issued tokens.
	RoomJoin bool `json:"roomJoin"`

	// CanPublish allows publishing audio/video tracks.
	CanPublish bool `json:"canPublish"`

	// CanSubscribe allows receiving other participants' tracks.
	CanSubscribe bool `json:"canSubscribe"`

	// CanUpdateOwnMetadata allows the participant to change its own name and metadata.
	CanUpdateOwnMetadata bool `json:"canUpdateOwnMetadata"`
}

// Claims is the full claim set of a room access token.
//
// StandardClaims is embedded without a tag so iss, sub, iat, nbf, exp and jti sit at the
// top level of the payload, next to the custom claims.
type Claims struct {
	jwt.StandardClaims

	// Name is the participant's display name.
	Name string `json:"name,omitempty"`

	// Video carries the room capability grants.
	Video *VideoGrant `json:"video,omitempty"`

	// Metadata is opaque participant metadata, stored as a string.
	Metadata string `json:"metadata,omitempty"`
}
