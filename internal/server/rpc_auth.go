package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/creachadair/jrpc2"
)

const codeUnauthorized = jrpc2.Code(-32600)

type errorBody struct {
	Version string       `json:"jsonrpc"`
	Error   *jrpc2.Error `json:"error"`
	ID      any          `json:"id"`
}

// requireToken rejects requests without "Authorization: Bearer <secret>"
// with a JSON-RPC error body and HTTP 401. An empty secret rejects
// everything.
func requireToken(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validToken(secret, r.Header.Get("Authorization")) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(&errorBody{
				Version: "2.0",
				Error:   &jrpc2.Error{Code: codeUnauthorized, Message: "Unauthorized"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validToken(secret, authHeader string) bool {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if secret == "" || !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
