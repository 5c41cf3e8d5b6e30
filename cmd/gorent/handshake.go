package main

import (
	"fmt"

	"github.com/lvbealr/gorent/metainfo"
	"github.com/lvbealr/gorent/peerwire"
)

// --------------------------------------------------------------------------------------------- //

func runHandshake(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: gorent handshake <torrent> <ip:port>")
	}

	mf, err := metainfo.Load(args[0])
	if err != nil {
		return err
	}

	conn, remotePeerID, err := peerwire.Open(args[1], mf.Info.Hash(), generatePeerID(), true)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Peer ID: %x\n", remotePeerID)

	return nil
}
