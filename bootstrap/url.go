package bootstrap

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsedURL is a GigE Vision XML URL, split into its scheme and the
// scheme-specific fields spec.md §4.6 cares about: a path, and for
// device-local fetches a file address and size. The wire form is
// "scheme:path[;address;length]", address and length given as
// unprefixed hex, e.g. "Local:Schema.zip;10000;4321".
type ParsedURL struct {
	Scheme  string
	Path    string
	Address uint32
	Size    uint32
}

// Parse splits raw into its scheme and scheme-specific fields.
// Scheme matching is case-insensitive (spec.md §4.6).
func Parse(raw string) (ParsedURL, error) {
	raw = strings.TrimRight(raw, "\x00")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ParsedURL{}, fmt.Errorf("bootstrap: empty URL")
	}

	schemeSep := strings.IndexByte(raw, ':')
	if schemeSep < 0 {
		return ParsedURL{}, fmt.Errorf("bootstrap: URL has no scheme: %q", raw)
	}
	scheme := strings.ToLower(raw[:schemeSep])
	rest := raw[schemeSep+1:]
	rest = strings.TrimPrefix(rest, "//")

	fields := strings.Split(rest, ";")
	u := ParsedURL{Scheme: scheme, Path: fields[0]}

	if len(fields) >= 3 {
		addr, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return ParsedURL{}, fmt.Errorf("bootstrap: bad address in URL %q: %w", raw, err)
		}
		size, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			return ParsedURL{}, fmt.Errorf("bootstrap: bad size in URL %q: %w", raw, err)
		}
		u.Address = uint32(addr)
		u.Size = uint32(size)
	}

	return u, nil
}

// IsZip reports whether the URL's path names a ZIP archive.
func (u ParsedURL) IsZip() bool {
	return strings.HasSuffix(strings.ToLower(u.Path), ".zip")
}
