package middleware

import (
	"net/http"

	"paygate/internal/auth"
	"paygate/internal/utils"
)

// AuthMiddleware resolves the caller's identity from a merchant API token.
// Anonymous requests pass through without an operator in the context;
// requests that present a token must present a valid one.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, tokenStr)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := utils.WithOperator(r.Context(), claims.Operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOperator guards merchant API routes. It must sit behind
// AuthMiddleware in the chain.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetOperatorFromContext(r.Context()); !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
