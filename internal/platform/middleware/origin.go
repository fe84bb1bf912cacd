// Copyright (c) 2026 Registra. All rights reserved.

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/solvik/registra/internal/platform/constants"
	"github.com/solvik/registra/internal/platform/ctxutil"
)

// mutatingMethods are the HTTP methods subject to origin validation.
// GET/HEAD/OPTIONS bypass unconditionally.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// ValidateOrigin rejects cross-origin state-mutating requests.
//
// # Flow
//
//  1. Non-mutating methods pass through untouched.
//  2. An empty allow-list disables validation entirely (fail-open for
//     deployments without a configured public origin).
//  3. The claimed origin is the Origin header, or the Referer header's
//     scheme+host+port when Origin is absent.
//  4. The claim must exactly equal one allow-list entry after both sides are
//     parsed the same way; anything else is rejected with a 403 and a
//     deliberately minimal body.
//
// # Diagnostics
//
// The rejected origin and the active allow-list are logged only outside
// production, so the allow-list is never disclosed where attackers can read
// server responses correlated with verbose logs.
func ValidateOrigin(trustedOrigins string, isProduction bool) func(http.Handler) http.Handler {
	allowList := parseAllowList(trustedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Method exemption
			if !mutatingMethods[request.Method] {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Fail-open when no allow-list is configured
			if len(allowList) == 0 {
				next.ServeHTTP(writer, request)
				return
			}

			// 3. Resolve the claimed origin
			claimed, err := claimedOrigin(request)
			if err == nil {
				// 4. Exact scheme+host+port match
				if allowList[claimed] {
					next.ServeHTTP(writer, request)
					return
				}
				err = fmt.Errorf("origin %q not in allow-list", claimed)
			}

			if !isProduction {
				logger := ctxutil.GetLogger(request.Context())
				logger.WarnContext(request.Context(), "origin_rejected",
					slog.String("reason", err.Error()),
					slog.String("allow_list", trustedOrigins),
					slog.String("method", request.Method),
					slog.String("path", request.URL.Path),
				)
			}

			writer.Header().Set("Content-Type", "application/json; charset=utf-8")
			writer.WriteHeader(http.StatusForbidden)
			_, _ = writer.Write([]byte(`{"error":"Forbidden"}`))
		})
	}
}

// claimedOrigin determines the request's claimed origin, preferring the
// Origin header and falling back to the Referer's scheme+host+port.
func claimedOrigin(request *http.Request) (string, error) {
	if origin := request.Header.Get(constants.HeaderOrigin); origin != "" {
		return normalizeOrigin(origin)
	}

	if referer := request.Header.Get(constants.HeaderReferer); referer != "" {
		return normalizeOrigin(referer)
	}

	return "", fmt.Errorf("no Origin or Referer header present")
}

// normalizeOrigin reduces a URL or origin string to its canonical
// scheme://host[:port] tuple.
func normalizeOrigin(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("unparseable origin %q: %w", raw, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("origin %q lacks scheme or host", raw)
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), nil
}

// parseAllowList splits and normalizes the comma-separated configuration
// value. Entries that fail to parse are dropped rather than silently matched.
func parseAllowList(trustedOrigins string) map[string]bool {
	allowList := make(map[string]bool)

	for _, raw := range strings.Split(trustedOrigins, ",") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		normalized, err := normalizeOrigin(trimmed)
		if err != nil {
			continue
		}
		allowList[normalized] = true
	}

	return allowList
}
