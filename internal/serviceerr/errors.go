package serviceerr

import "errors"

var ErrConflict = errors.New("already exists")
var ErrNotFound = errors.New("not found")
var ErrMissingRequestID = errors.New("missing request id")
var ErrUntrustedDomain = errors.New("untrusted domain")
