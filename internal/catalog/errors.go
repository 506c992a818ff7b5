package catalog

import "errors"

// ErrSyntax indicates a malformed catalog line. Errors wrapping it
// carry the line number and the offending text.
var ErrSyntax = errors.New("catalog syntax error")
