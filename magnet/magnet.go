// Package magnet parses BitTorrent v1 magnet links: plumbing around the
// core, in spec.md's own words, but still built to the same strictness
// as the rest of the parsers since a malformed link should fail loudly
// rather than silently falling back to defaults.
package magnet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// --------------------------------------------------------------------------------------------- //

// ErrMalformedMagnet is returned when a link is not a well-formed v1
// magnet URI.
var ErrMalformedMagnet = errors.New("magnet: malformed magnet link")

var xtPattern = regexp.MustCompile(`(?i)^urn:btih:([0-9a-f]{40})$`)

// --------------------------------------------------------------------------------------------- //

// Link is a parsed magnet link. Only the v1 (btih) hash form is
// supported; v2 (btmh) and hybrid links are rejected.
type Link struct {
	InfoHash [20]byte
	Name     string
	Announce string
	PeerAddr string
}

// --------------------------------------------------------------------------------------------- //

/*
Parse decodes a "magnet:?xt=urn:btih:<40-hex>&dn=<name>&tr=<tracker>&x.pe=<ip:port>"
link. Beyond the scheme and query string nothing else is allowed: no
host, path, params, or fragment. Every query parameter, recognised or
not, must appear at most once; repeats are rejected rather than silently
taking the first or last value.
*/
func Parse(link string) (*Link, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("magnet: %v: %w", err, ErrMalformedMagnet)
	}

	if u.Scheme != "magnet" {
		return nil, fmt.Errorf("magnet: scheme %q is not \"magnet\": %w", u.Scheme, ErrMalformedMagnet)
	}

	if u.Opaque != "" || u.Host != "" || u.Path != "" || u.Fragment != "" {
		return nil, fmt.Errorf("magnet: unexpected host/path/fragment in %q: %w", link, ErrMalformedMagnet)
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("magnet: parsing query: %v: %w", err, ErrMalformedMagnet)
	}

	for key, values := range query {
		if len(values) != 1 {
			return nil, fmt.Errorf("magnet: parameter %q given %d times, want exactly once: %w", key, len(values), ErrMalformedMagnet)
		}
	}

	xt := query.Get("xt")
	if xt == "" {
		return nil, fmt.Errorf("magnet: missing \"xt\" parameter: %w", ErrMalformedMagnet)
	}

	m := xtPattern.FindStringSubmatch(xt)
	if m == nil {
		return nil, fmt.Errorf("magnet: \"xt\" %q is not a v1 btih hash: %w", xt, ErrMalformedMagnet)
	}

	hashBytes, err := hex.DecodeString(m[1])
	if err != nil {
		return nil, fmt.Errorf("magnet: decoding info hash: %v: %w", err, ErrMalformedMagnet)
	}

	var infoHash [20]byte
	copy(infoHash[:], hashBytes)

	return &Link{
		InfoHash: infoHash,
		Name:     query.Get("dn"),
		Announce: query.Get("tr"),
		PeerAddr: query.Get("x.pe"),
	}, nil
}
