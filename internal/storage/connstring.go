// Package storage holds the connection-URI helpers and the classified error
// type shared by the dialect shim and the root mlmd package.
package storage

import (
	"strings"
)

// ParsedURI is the result of splitting a connection URI per spec §6.1.
type ParsedURI struct {
	Dialect string // "sqlite" or "mysql"
	Target  string // path (sqlite) or DSN tail (mysql)
}

// ParseURI detects the dialect from a literal scheme prefix and returns the
// remainder to hand to the dialect-specific DSN builder. Unknown schemes are
// the caller's responsibility to reject as invalid-argument.
func ParseURI(uri string) (ParsedURI, bool) {
	switch {
	case strings.HasPrefix(uri, "sqlite://"):
		return ParsedURI{Dialect: "sqlite", Target: strings.TrimPrefix(uri, "sqlite://")}, true
	case strings.HasPrefix(uri, "mysql://"):
		return ParsedURI{Dialect: "mysql", Target: strings.TrimPrefix(uri, "mysql://")}, true
	default:
		return ParsedURI{}, false
	}
}
