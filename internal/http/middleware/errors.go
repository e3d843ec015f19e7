package middleware

import "errors"

var (
	errMissingToken = errors.New("missing or invalid token")
	errNotAdmin     = errors.New("admin access required")
)
