// Package tracker implements the HTTP tracker GET request and compact
// peer list parsing described in spec.md §4.3.
package tracker

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lvbealr/gorent/bencode"
	"github.com/lvbealr/gorent/metainfo"
)

// --------------------------------------------------------------------------------------------- //

// ErrTrackerFailure covers HTTP non-2xx responses, non-bencoded bodies, and
// responses missing the "peers" field.
var ErrTrackerFailure = errors.New("tracker: request failed")

const defaultPort = 6881

// --------------------------------------------------------------------------------------------- //

// Address is a peer's IPv4 address and port.
type Address struct {
	IP   net.IP
	Port uint16
}

// String renders the address as "ip:port".
func (a Address) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

// --------------------------------------------------------------------------------------------- //

/*
Response holds the fields of interest from a bencoded tracker response:
the compact peer list plus the accounting fields a tracker reports.
MinInterval is read but, per spec.md's design notes, never used to drive a
re-announce loop — no periodic re-announce is implemented.
*/
type Response struct {
	Peers       []Address
	Interval    int
	Complete    int
	Incomplete  int
	MinInterval int
}

// --------------------------------------------------------------------------------------------- //

/*
Announce issues an HTTP GET to the torrent's announce URL and parses the
bencoded response. peerID must be exactly 20 bytes.
*/
func Announce(mf *metainfo.MetaInfoFile, peerID [20]byte) (*Response, error) {
	u, err := url.Parse(mf.Announce)
	if err != nil {
		return nil, fmt.Errorf("tracker: parsing announce URL %q: %v: %w", mf.Announce, err, ErrTrackerFailure)
	}

	hash := mf.Info.Hash()

	params := url.Values{}
	params.Set("info_hash", string(hash[:]))
	params.Set("peer_id", string(peerID[:]))
	params.Set("port", strconv.Itoa(defaultPort))
	params.Set("uploaded", "0")
	params.Set("downloaded", "0")
	params.Set("left", strconv.FormatInt(mf.Info.Length, 10))
	params.Set("compact", "1")

	u.RawQuery = params.Encode()

	client := &http.Client{Timeout: 15 * time.Second}

	resp, err := client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("tracker: GET %s: %v: %w", u, err, ErrTrackerFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tracker: %s returned status %d: %w", u, resp.StatusCode, ErrTrackerFailure)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tracker: reading response body: %v: %w", err, ErrTrackerFailure)
	}

	root, err := bencode.DecodeFull(body)
	if err != nil {
		return nil, fmt.Errorf("tracker: decoding response body: %v: %w", err, ErrTrackerFailure)
	}

	dict, ok := root.(*bencode.Dict)
	if !ok {
		return nil, fmt.Errorf("tracker: response is not a dictionary: %w", ErrTrackerFailure)
	}

	if failure, err := dict.GetString("failure reason"); err == nil {
		return nil, fmt.Errorf("tracker: %s: %w", failure, ErrTrackerFailure)
	}

	peersRaw, err := dict.GetString("peers")
	if err != nil {
		return nil, fmt.Errorf("tracker: response missing \"peers\": %w", ErrTrackerFailure)
	}

	peers, err := ParseCompactPeers(peersRaw)
	if err != nil {
		return nil, fmt.Errorf("tracker: %v: %w", err, ErrTrackerFailure)
	}

	r := &Response{Peers: peers}

	if v, err := dict.GetInt("interval"); err == nil {
		r.Interval = int(v)
	}
	if v, err := dict.GetInt("complete"); err == nil {
		r.Complete = int(v)
	}
	if v, err := dict.GetInt("incomplete"); err == nil {
		r.Incomplete = int(v)
	}
	if v, err := dict.GetInt("min interval"); err == nil {
		r.MinInterval = int(v)
	}

	return r, nil
}

// --------------------------------------------------------------------------------------------- //

/*
ParseCompactPeers decodes a compact peer list: a byte string that is the
concatenation of 6-byte records, each a 4-byte IPv4 address followed by a
2-byte big-endian port.
*/
func ParseCompactPeers(data []byte) ([]Address, error) {
	const recordSize = 6

	if len(data)%recordSize != 0 {
		return nil, fmt.Errorf("invalid compact peers length %d (must be multiple of %d)", len(data), recordSize)
	}

	peers := make([]Address, 0, len(data)/recordSize)

	for i := 0; i < len(data); i += recordSize {
		ip := net.IPv4(data[i], data[i+1], data[i+2], data[i+3])
		port := binary.BigEndian.Uint16(data[i+4 : i+6])

		peers = append(peers, Address{IP: ip, Port: port})
	}

	return peers, nil
}
