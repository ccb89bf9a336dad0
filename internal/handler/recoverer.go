package handler

import (
	"net/http"
	"runtime/debug"

	"roomtoken/internal/pkg/errs"
	"roomtoken/internal/pkg/logx"
	"roomtoken/internal/pkg/resp"
)

// Recoverer turns a panic in a handler into a generic 500 response. The panic value and
// stack are logged server-side only.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logx.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic")

			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		}()

		next.ServeHTTP(w, r)
	})
}
