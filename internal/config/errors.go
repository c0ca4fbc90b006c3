package config

import "errors"

// ErrInvalid is wrapped with the offending field or value by Validate.
var ErrInvalid = errors.New("config: invalid configuration")
