package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/ixxchan/nb/ledger"
	"github.com/ixxchan/nb/node"
	"github.com/ixxchan/nb/protocol"
)

func startNode(t *testing.T) *node.Node {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	n, err := node.New(listener, node.Options{})
	if err != nil {
		t.Fatalf("node creation failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go n.Run(ctx)
	return n
}

func TestBootstrapPeersAreGreeted(t *testing.T) {
	target := startNode(t)
	n := startNode(t)

	submitBootstrap(n, []string{target.Self().Address})
	n.Submit(node.Command{Kind: node.CmdMine})

	// the bootstrap Hello taught target about n, so n's mined block
	// reaches it over gossip
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := protocol.Do(target.Self().Address, protocol.HowAreYou(target.Self()))
		if err == nil && resp.Type == protocol.MsgMyBlocks && len(resp.Blocks) >= 2 {
			if !ledger.IsValidChain(resp.Blocks) {
				t.Fatal("gossiped chain is invalid")
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("bootstrap never linked the nodes")
}

func TestExitErrorFiltersCancellation(t *testing.T) {
	if err := exitError(nil); err != nil {
		t.Fatalf("nil error filtered to %v", err)
	}
	if err := exitError(context.Canceled); err != nil {
		t.Fatalf("cancellation filtered to %v", err)
	}
	if err := exitError(fmt.Errorf("event loop: %w", context.Canceled)); err != nil {
		t.Fatalf("wrapped cancellation filtered to %v", err)
	}
	if err := exitError(errors.New("listener broke")); err == nil {
		t.Fatal("a real failure should pass through")
	}
}
