package commands

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ixxchan/nb/cli"
	"github.com/ixxchan/nb/config"
	"github.com/ixxchan/nb/node"
	"github.com/ixxchan/nb/store/peerstore"
)

// RunServe runs the node and the interactive front end until the
// operator exits or the context is cancelled.
func RunServe(ctx context.Context, cfg *config.Config) {
	var cache *peerstore.Store
	if cfg.Peers.CachePath != "" {
		var err error
		cache, err = peerstore.Open(cfg.Peers.CachePath)
		if err != nil {
			log.Fatalf("Failed to open peer cache: %v", err)
		}
		defer cache.Close()
	}

	listener, err := net.Listen("tcp", cfg.Node.ListenAddress)
	if err != nil {
		log.Fatalf("Failed to create a listener: %v", err)
	}

	n, err := node.New(listener, node.Options{
		AdvertisedAddress: cfg.Node.AdvertisedAddress,
		ResolveInterval:   time.Duration(cfg.Peers.ResolveIntervalSec) * time.Second,
		PeerCache:         cache,
	})
	if err != nil {
		log.Fatalf("Failed to create node: %v", err)
	}

	submitBootstrap(n, cfg.Peers.Bootstrap)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg, cctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		return n.Run(cctx)
	})

	wg.Go(func() error {
		// operator exit stops the whole node
		defer cancel()
		return cli.Run(cctx, os.Stdin, n)
	})

	if err := exitError(wg.Wait()); err != nil {
		log.Fatalf("Node stopped: %v", err)
	}
}

// submitBootstrap queues a greeting for every configured bootstrap
// address; the node works through them once its loop starts.
func submitBootstrap(n *node.Node, addrs []string) {
	for _, addr := range addrs {
		n.Submit(node.Command{Kind: node.CmdAddPeer, Address: addr})
	}
}

// exitError filters out context cancellation, wrapped or not: that is
// the normal way the node group winds down after an operator exit.
func exitError(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
