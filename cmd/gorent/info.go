package main

import (
	"fmt"

	"github.com/lvbealr/gorent/metainfo"
	"github.com/lvbealr/gorent/tracker"
)

// --------------------------------------------------------------------------------------------- //

func runInfo(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: gorent info <torrent>")
	}

	mf, err := metainfo.Load(args[0])
	if err != nil {
		return err
	}

	hash := mf.Info.Hash()

	fmt.Printf("Tracker URL: %s\n", mf.Announce)
	fmt.Printf("Length: %d\n", mf.Info.Length)
	fmt.Printf("Info Hash: %x\n", hash)
	fmt.Printf("Piece Length: %d\n", mf.Info.PieceLength)
	fmt.Println("Piece Hashes:")
	for _, h := range mf.Info.PieceHashes {
		fmt.Printf("%x\n", h)
	}

	return nil
}

// --------------------------------------------------------------------------------------------- //

func runPeers(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: gorent peers <torrent>")
	}

	mf, err := metainfo.Load(args[0])
	if err != nil {
		return err
	}

	peerID := generatePeerID()

	resp, err := tracker.Announce(mf, peerID)
	if err != nil {
		return err
	}

	for _, p := range resp.Peers {
		fmt.Println(p.String())
	}

	return nil
}
