package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/lvbealr/gorent/metainfo"
	"github.com/lvbealr/gorent/scheduler"
	"github.com/lvbealr/gorent/tracker"
)

// --------------------------------------------------------------------------------------------- //

func runDownloadPiece(args []string) error {
	fs := flag.NewFlagSet("download_piece", flag.ContinueOnError)
	output := fs.String("o", "", "output path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("usage: gorent download_piece [-o OUT] <torrent> <index>")
	}

	index, err := strconv.Atoi(rest[1])
	if err != nil {
		return fmt.Errorf("invalid piece index %q: %v", rest[1], err)
	}

	mf, err := metainfo.Load(rest[0])
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = fmt.Sprintf("piece-%d", index)
	}

	addresses, peerID, err := resolvePeers(mf)
	if err != nil {
		return err
	}

	return scheduler.DownloadPiece(addresses, mf, peerID, index, out)
}

// --------------------------------------------------------------------------------------------- //

func runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	output := fs.String("o", "", "output path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: gorent download [-o OUT] <torrent>")
	}

	mf, err := metainfo.Load(rest[0])
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = mf.Info.Name
	}

	addresses, peerID, err := resolvePeers(mf)
	if err != nil {
		return err
	}

	showProgress := term.IsTerminal(int(os.Stderr.Fd()))

	if err := scheduler.Download(addresses, mf, peerID, out, showProgress); err != nil {
		return err
	}

	fmt.Printf("saved %s\n", out)

	return nil
}

// --------------------------------------------------------------------------------------------- //

func resolvePeers(mf *metainfo.MetaInfoFile) ([]tracker.Address, [20]byte, error) {
	peerID := generatePeerID()

	resp, err := tracker.Announce(mf, peerID)
	if err != nil {
		return nil, [20]byte{}, err
	}

	return resp.Peers, peerID, nil
}
