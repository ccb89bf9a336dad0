/*
Package handler provides the HTTP handlers and routing setup for the token server.

This file maps the public request bodies onto token.CredentialRequest and renders
issued credentials and validation results.
*/
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"roomtoken/internal/app/token"
	"roomtoken/internal/pkg/auth/jwt"
	"roomtoken/internal/pkg/errs"
	"roomtoken/internal/pkg/logx"
	"roomtoken/internal/pkg/req"
	"roomtoken/internal/pkg/resp"
)

// IssueTokenInput is the body of POST /token. Two client generations are accepted:
// {user_id, full_name, user_email, room_name} and {participant_name, room}.
type IssueTokenInput struct {
	UserID          string `json:"user_id,omitempty"`
	FullName        string `json:"full_name,omitempty"`
	UserEmail       string `json:"user_email,omitempty"`
	ParticipantName string `json:"participant_name,omitempty"`

	RoomName string `json:"room_name,omitempty"`
	Room     string `json:"room,omitempty"`

	// Metadata is either a JSON object of strings or a string holding one.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	Capabilities token.Capabilities `json:"capabilities"`
}

type IssueTokenResponse struct {
	Token     string `json:"token"`
	RoomName  string `json:"room_name"`
	URL       string `json:"url,omitempty"`
	ExpiresAt string `json:"expires_at"`
}

type ValidateTokenInput struct {
	Token string `json:"token"`
}

type ValidateTokenResponse struct {
	Valid     bool   `json:"valid"`
	Identity  string `json:"identity,omitempty"`
	Name      string `json:"name,omitempty"`
	Room      string `json:"room,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

var errMetadataShape = errors.New("metadata must be an object of strings")

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseMetadata returns present=false when the field was omitted or null.
func parseMetadata(raw json.RawMessage) (md map[string]string, present bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, true, err
		}
		md, err := token.DecodeMetadata(s)
		return md, true, err
	case '{':
		if err := json.Unmarshal(raw, &md); err != nil {
			return nil, true, err
		}
		return md, true, nil
	default:
		return nil, true, errMetadataShape
	}
}

// toCredentialRequest resolves field aliases and metadata defaults.
func (in *IssueTokenInput) toCredentialRequest() (token.CredentialRequest, error) {
	cr := token.CredentialRequest{
		Identity:     firstNonEmpty(in.UserID, in.ParticipantName),
		Name:         firstNonEmpty(in.FullName, in.ParticipantName),
		Room:         firstNonEmpty(in.RoomName, in.Room),
		IdentityHint: in.UserEmail,
		Capabilities: in.Capabilities,
	}

	md, present, err := parseMetadata(in.Metadata)
	if err != nil {
		return cr, err
	}

	if !present && in.UserEmail != "" {
		md = map[string]string{
			"user_email": in.UserEmail,
			"user_id":    cr.Identity,
			"full_name":  cr.Name,
		}
	}
	cr.Metadata = md

	return cr, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// HandleIssueToken serves POST /token.
func HandleIssueToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input IssueTokenInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		credReq, err := input.toCredentialRequest()
		if err != nil {
			logx.Ctx(r.Context()).Debug().Err(err).Msg("Rejected token request metadata")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidMetadata))
			return
		}

		cred, err := deps.Tokens.Issue(r.Context(), credReq)
		if err != nil {
			var argErr *token.ArgumentError
			if errors.As(err, &argErr) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams, argErr.Reason))
				return
			}

			resp.RespondError(w, r, errs.NewError(errs.ErrTokenIssueFailed, err))
			return
		}

		resp.RespondSuccess(w, r, IssueTokenResponse{
			Token:     cred.Token,
			RoomName:  cred.Room,
			URL:       deps.Config.RoomServiceURL,
			ExpiresAt: formatTime(cred.ExpiresAt),
		})
	}
}

// tokenFromRequest looks for the token in the JSON body, the token query parameter and
// the Authorization header, in that order.
func tokenFromRequest(w http.ResponseWriter, r *http.Request) string {
	if req.HasJSONBody(r) {
		var input ValidateTokenInput
		if customErr := req.BindJSON(w, r, &input); customErr == nil && input.Token != "" {
			return input.Token
		}
	}

	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}

	return jwt.BearerToken(r)
}

// HandleValidateToken serves POST /validate. It always answers 200; an invalid token
// is reported in the body with a fixed message.
func HandleValidateToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := deps.Tokens.Validate(r.Context(), tokenFromRequest(w, r))

		if !result.Valid {
			resp.RespondSuccess(w, r, ValidateTokenResponse{
				Valid: false,
				Error: result.PublicError(),
			})
			return
		}

		resp.RespondSuccess(w, r, ValidateTokenResponse{
			Valid:     true,
			Identity:  result.Identity,
			Name:      result.Name,
			Room:      result.Room,
			ExpiresAt: formatTime(result.ExpiresAt),
		})
	}
}
