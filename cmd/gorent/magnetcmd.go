package main

import (
	"fmt"

	"github.com/lvbealr/gorent/magnet"
)

// --------------------------------------------------------------------------------------------- //

func runMagnetParse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: gorent magnet_parse <link>")
	}

	l, err := magnet.Parse(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Tracker URL: %s\n", l.Announce)
	fmt.Printf("Info Hash: %x\n", l.InfoHash)

	return nil
}
