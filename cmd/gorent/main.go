// Command gorent is a single-torrent BitTorrent v1 downloader: given a
// .torrent file or magnet link it locates peers through an HTTP tracker,
// negotiates the peer wire protocol, and reconstructs the original file.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mitchellh/colorstring"
)

// --------------------------------------------------------------------------------------------- //

var subcommands = map[string]func([]string) error{
	"decode":         runDecode,
	"info":           runInfo,
	"peers":          runPeers,
	"handshake":      runHandshake,
	"download_piece": runDownloadPiece,
	"download":       runDownload,
	"magnet_parse":   runMagnetParse,
}

// --------------------------------------------------------------------------------------------- //

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, ok := subcommands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, colorstring.Color("[red]unknown command %q[reset]\n"), os.Args[1])
		usage()
		os.Exit(1)
	}

	if err := cmd(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, colorstring.Color("[red]error:[reset] %v\n"), err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------------------------- //

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gorent <command> [arguments]")
	fmt.Fprintln(os.Stderr, "commands: decode, info, peers, handshake, download_piece, download, magnet_parse")
}

// --------------------------------------------------------------------------------------------- //

// generatePeerID returns this client's 20-byte peer id: a fixed
// recognisable prefix followed by a constant suffix, matching the
// convention peers and trackers expect without needing true randomness.
func generatePeerID() [20]byte {
	var id [20]byte
	copy(id[:], "-GR0001-000000000000")
	return id
}
