package service

import "errors"

// ErrEmptyQuery is returned by Embed when asked to embed blank text.
var ErrEmptyQuery = errors.New("service: empty query text")
