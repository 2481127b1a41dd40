package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/callback-broker/internal/broker"
	"github.com/openkcm/callback-broker/internal/serviceerr"
	"github.com/openkcm/callback-broker/pkg/callback"
)

// callbackPage is served to the browser once a callback has been accepted,
// so the user knows the window has done its job.
const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Sign-in complete</title></head>
<body>
<p>You may now close this window.</p>
</body>
</html>`

// callbackHandlerFunc accepts the redirect from the authorization endpoint
// and parks the forwarded URI components until the originating client polls
// them via fetch-callback.
func callbackHandlerFunc(b *broker.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		q := req.URL.Query()

		components := callback.URIComponents{
			Scheme:    q.Get(callback.ParamScheme),
			Authority: q.Get(callback.ParamAuthority),
			Path:      q.Get(callback.ParamPath),
			Query:     q.Get(callback.ParamQuery),
			Fragment:  q.Get(callback.ParamFragment),
		}

		// Parameters appended by the redirecting party, such as an OAuth
		// authorization code, are carried over into the query component.
		extra := url.Values{}
		for key, values := range q {
			if !strings.HasPrefix(key, callback.ParamPrefix) {
				extra[key] = values
			}
		}
		if len(extra) > 0 {
			if components.Query != "" {
				components.Query += "&"
			}
			components.Query += extra.Encode()
		}

		err := b.Accept(ctx, q.Get(callback.ParamRequestID), components)

		switch {
		case errors.Is(err, serviceerr.ErrMissingRequestID):
			http.Error(w, "missing "+callback.ParamRequestID, http.StatusBadRequest)
			return
		case errors.Is(err, serviceerr.ErrUntrustedDomain):
			slogctx.Warn(ctx, "Rejected callback from untrusted authority", "authority", components.Authority)
			http.Error(w, "untrusted callback authority", http.StatusForbidden)
			return
		case err != nil:
			slogctx.Error(ctx, "Failed to accept callback", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(callbackPage))
	}
}

// fetchCallbackHandlerFunc serves the polling side of the protocol. While no
// payload has arrived for the request id it answers 200 with an empty body,
// so clients keep polling without special-casing the response status.
func fetchCallbackHandlerFunc(b *broker.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		body, err := b.Fetch(ctx, req.URL.Query().Get(callback.FetchParamRequestID))

		switch {
		case errors.Is(err, serviceerr.ErrMissingRequestID):
			http.Error(w, "missing "+callback.FetchParamRequestID, http.StatusBadRequest)
			return
		case err != nil:
			slogctx.Error(ctx, "Failed to fetch callback payload", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if body == nil {
			w.WriteHeader(http.StatusOK)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}
