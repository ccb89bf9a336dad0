package handler

import (
	"net/http"

	"roomtoken/internal/pkg/errs"
	"roomtoken/internal/pkg/logx"
	"roomtoken/internal/pkg/req"
	"roomtoken/internal/pkg/resp"
)

type PowVerifyInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandlePowChallenge issues a nonce for the client to solve.
func HandlePowChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"nonce":      deps.PoW.GenerateNonce(),
			"difficulty": deps.PoW.Difficulty(),
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandlePowVerify exchanges a solved challenge for a single-use proof token.
func HandlePowVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PowVerifyInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		proofToken, err := deps.PoW.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			logx.Ctx(r.Context()).Warn().Err(err).Msg("Proof of work rejected")
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"pow_token": proofToken})
	}
}
