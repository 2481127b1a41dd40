// Package callback implements the client half of the URL callback protocol:
// it hands out redirect URIs carrying a fresh request id and polls the broker
// until the matching callback payload arrives or the ticket times out.
package callback

// Wire-level query parameter names. The vscode- namespace keeps the broker's
// parameters from colliding with query parameters of the target application.
const (
	// ParamPrefix namespaces every broker parameter on the callback endpoint.
	ParamPrefix = "vscode-"

	ParamRequestID = "vscode-requestId"
	ParamScheme    = "vscode-scheme"
	ParamAuthority = "vscode-authority"
	ParamPath      = "vscode-path"
	ParamQuery     = "vscode-query"
	ParamFragment  = "vscode-fragment"

	// FetchParamRequestID is the plain request id parameter of the
	// fetch-callback endpoint; it is not namespaced because that endpoint
	// is never opened by a third party.
	FetchParamRequestID = "requestId"
)

// Endpoint paths on the broker.
const (
	CallbackPath      = "/callback"
	FetchCallbackPath = "/fetch-callback"
)

// URIComponents describes the parts of a URI delivered through the broker.
// Fields left empty were not supplied by the originating redirect.
type URIComponents struct {
	Scheme    string `json:"scheme,omitempty"`
	Authority string `json:"authority,omitempty"`
	Path      string `json:"path,omitempty"`
	Query     string `json:"query,omitempty"`
	Fragment  string `json:"fragment,omitempty"`
}
