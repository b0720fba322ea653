package middleware

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/api/io"
	"github.com/wafwatch/wafwatch/pkg/tokens"
	"go.uber.org/zap"
)

type contextKey int

const tokenContextKey contextKey = 0

// TokenHeader carries the sender token on ingest requests.
const TokenHeader = "x-wafwatch-token"

// SenderTokenAuth is a middleware which returns a HTTP 401 response if the
// provided token header does not match a token from the TokenStorer.
// On success the token is stored on the request context.
func SenderTokenAuth(storer tokens.TokenStorer, log *zap.SugaredLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tokenID := r.Header.Get(TokenHeader)

			token, err := storer.Get(ctx, tokenID)

			if errors.Cause(err) == tokens.ErrTokenNotFound {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			} else if err != nil {
				io.RespondError(ctx, log, w, err)
			} else {
				ctx = context.WithValue(ctx, tokenContextKey, token)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		}
		return http.HandlerFunc(fn)
	}
}

// TokenFromContext returns the sender token stored by SenderTokenAuth.
func TokenFromContext(ctx context.Context) (*tokens.Token, bool) {
	token, ok := ctx.Value(tokenContextKey).(*tokens.Token)
	return token, ok
}
