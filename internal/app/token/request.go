package token

import (
	"regexp"
	"sort"
	"strings"

	validation "github.com/jellydator/validation"
)

const (
	// MinIdentityLength and MinNameLength are the shortest accepted identity and
	// display name, counted in runes.
	MinIdentityLength = 3
	MinNameLength     = 3
	MaxIdentityLength = 256
	MaxNameLength     = 256

	// MinRoomLength and MaxRoomLength bound an explicitly requested room name.
	MinRoomLength = 3
	MaxRoomLength = 128
)

var noWhitespace = regexp.MustCompile(`^\S+$`)

// notBlank rejects strings made only of whitespace.
var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s != "" && strings.TrimSpace(s) == "" {
		return validation.NewError("validation_not_blank", "must not be blank")
	}
	return nil
})

// Capabilities selects the grants placed on a token. A nil field means true.
type Capabilities struct {
	CanPublish           *bool `json:"can_publish,omitempty"`
	CanSubscribe         *bool `json:"can_subscribe,omitempty"`
	CanUpdateOwnMetadata *bool `json:"can_update_own_metadata,omitempty"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Resolve applies the all-true defaults.
func (c Capabilities) Resolve() (canPublish, canSubscribe, canUpdateOwnMetadata bool) {
	return boolOr(c.CanPublish, true), boolOr(c.CanSubscribe, true), boolOr(c.CanUpdateOwnMetadata, true)
}

// CredentialRequest is the input to Authority.Issue.
type CredentialRequest struct {
	// Identity is the unique subject of the token.
	Identity string `json:"identity"`

	// Name is the participant's display name.
	Name string `json:"name"`

	// Room is the room to grant. When empty a name is derived from IdentityHint.
	Room string `json:"room"`

	// IdentityHint feeds room derivation (typically an email address). Identity is
	// used when it is empty.
	IdentityHint string `json:"identity_hint"`

	// Metadata is attached to the token as an opaque string.
	Metadata map[string]string `json:"metadata"`

	Capabilities Capabilities `json:"capabilities"`
}

// Validate checks the request and returns an *ArgumentError describing the first
// problems found, or nil.
func (r CredentialRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Identity,
			validation.Required.Error("is required"),
			notBlank,
			validation.RuneLength(MinIdentityLength, MaxIdentityLength),
		),
		validation.Field(&r.Name,
			validation.Required.Error("is required"),
			notBlank,
			validation.RuneLength(MinNameLength, MaxNameLength),
		),
		validation.Field(&r.Room,
			validation.RuneLength(MinRoomLength, MaxRoomLength),
			validation.Match(noWhitespace).Error("must not contain whitespace"),
		),
	)
	if err == nil {
		return nil
	}

	return &ArgumentError{Reason: describe(err)}
}

// describe renders validation errors in a stable field order.
func describe(err error) string {
	errs, ok := err.(validation.Errors)
	if !ok {
		return err.Error()
	}

	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+errs[k].Error())
	}
	return strings.Join(parts, "; ")
}
