package http

import _ "embed"

// placeholderCover is served whenever a cover blob is missing or cannot
// be read, so cover lookups degrade gracefully instead of erroring.
//
//go:embed assets/placeholder_cover.png
var placeholderCover []byte
