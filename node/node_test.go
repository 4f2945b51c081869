package node

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ixxchan/nb/ledger"
	"github.com/ixxchan/nb/peer"
	"github.com/ixxchan/nb/protocol"
)

func startNode(t *testing.T) *Node {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	n, err := New(listener, Options{})
	if err != nil {
		t.Fatalf("node creation failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go n.Run(ctx)
	return n
}

// awaitChain polls a node over the wire until its chain reaches the
// wanted length. Asking with the node's own identity keeps the probe out
// of its registry.
func awaitChain(t *testing.T, n *Node, want int) []*ledger.Block {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := protocol.Do(n.Self().Address, protocol.HowAreYou(n.Self()))
		if err == nil && resp.Type == protocol.MsgMyBlocks && len(resp.Blocks) >= want {
			return resp.Blocks
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("chain of %s never reached length %d", n.Self().ID, want)
	return nil
}

func TestHelloIsAcknowledged(t *testing.T) {
	n := startNode(t)

	resp, err := protocol.Do(n.Self().Address, protocol.Hello(n.Self()))
	if err != nil {
		t.Fatalf("hello failed: %v", err)
	}
	if err := resp.ExpectAck(); err != nil {
		t.Fatalf("hello answered with %d: %v", resp.Type, err)
	}
	if resp.Sender != n.Self() {
		t.Fatalf("ack carries identity %+v, want %+v", resp.Sender, n.Self())
	}
}

func TestHowAreYouReturnsTheChain(t *testing.T) {
	n := startNode(t)

	blocks := awaitChain(t, n, 1)
	if len(blocks) != 1 {
		t.Fatalf("fresh node reports %d blocks, want 1", len(blocks))
	}
	if !ledger.IsValidChain(blocks) {
		t.Fatal("reported chain is invalid")
	}
}

func TestMineExtendsChainWithReward(t *testing.T) {
	n := startNode(t)

	n.Submit(Command{Kind: CmdNewTransaction, Sender: "alice", Recipient: "bob", Amount: 5})
	n.Submit(Command{Kind: CmdMine})

	blocks := awaitChain(t, n, 2)
	if !ledger.IsValidChain(blocks) {
		t.Fatal("mined chain is invalid")
	}
	tip := blocks[len(blocks)-1]
	var sawPayment, sawReward bool
	for _, tx := range tip.Transactions {
		if tx.Sender == "alice" && tx.Recipient == "bob" && tx.Amount == 5 {
			sawPayment = true
		}
		if tx.Sender == "0" && tx.Recipient == n.Self().ID && tx.Amount == 1 {
			sawReward = true
		}
	}
	if !sawPayment {
		t.Fatal("mined block is missing the submitted transaction")
	}
	if !sawReward {
		t.Fatal("mined block is missing the reward transaction")
	}
}

func TestBlockGossipReachesPeers(t *testing.T) {
	a := startNode(t)
	b := startNode(t)

	// greeting links both registries: b learns a from the Hello, a
	// learns b from the Ack
	a.Submit(Command{Kind: CmdAddPeer, Address: b.Self().Address})
	a.Submit(Command{Kind: CmdNewTransaction, Sender: "alice", Recipient: "bob", Amount: 5})
	a.Submit(Command{Kind: CmdMine})

	blocks := awaitChain(t, b, 2)
	if !ledger.IsValidChain(blocks) {
		t.Fatal("gossiped chain is invalid")
	}
	var sawPayment bool
	for _, tx := range blocks[1].Transactions {
		if tx.Sender == "alice" {
			sawPayment = true
		}
	}
	if !sawPayment {
		t.Fatal("gossiped block lost the transaction")
	}
}

// recordingPeer is a bare wire endpoint that acknowledges every request
// and keeps what it saw, so tests can observe gossip without a second
// full node.
type recordingPeer struct {
	self peer.Info
	mu   sync.Mutex
	reqs []*protocol.Request
}

func startRecordingPeer(t *testing.T) *recordingPeer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	r := &recordingPeer{
		self: peer.Info{ID: "recorder", Address: listener.Addr().String()},
	}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				req, err := protocol.ReadRequest(conn)
				if err != nil {
					return
				}
				r.mu.Lock()
				r.reqs = append(r.reqs, req)
				r.mu.Unlock()
				protocol.WriteResponse(conn, protocol.Ack(r.self))
			}(conn)
		}
	}()
	return r
}

func (r *recordingPeer) requests() []*protocol.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	reqs := make([]*protocol.Request, len(r.reqs))
	copy(reqs, r.reqs)
	return reqs
}

func TestNewPeerIsRelayedOnce(t *testing.T) {
	n := startNode(t)
	recorder := startRecordingPeer(t)

	// the recorder introduces itself so relays have somewhere to go
	resp, err := protocol.Do(n.Self().Address, protocol.Hello(recorder.self))
	if err != nil {
		t.Fatalf("hello failed: %v", err)
	}
	if err := resp.ExpectAck(); err != nil {
		t.Fatalf("hello answered with %d: %v", resp.Type, err)
	}

	// a third party relays a newcomer to us, twice
	relayer := peer.Info{ID: "relayer", Address: "127.0.0.1:1"}
	newcomer := peer.Info{ID: "newcomer", Address: "127.0.0.1:1"}
	for i := 0; i < 2; i++ {
		resp, err := protocol.Do(n.Self().Address, protocol.AnnouncePeer(relayer, newcomer))
		if err != nil {
			t.Fatalf("new peer announcement failed: %v", err)
		}
		if err := resp.ExpectAck(); err != nil {
			t.Fatalf("announcement answered with %d: %v", resp.Type, err)
		}
	}

	// a transaction announcement marks the end of the gossip the two
	// relays could have produced: broadcasts leave in queue order
	if _, err := protocol.Do(n.Self().Address,
		protocol.AnnounceTransaction(relayer, ledger.NewTransaction("A", "B", 1))); err != nil {
		t.Fatalf("transaction announcement failed: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		reqs := recorder.requests()
		sawMarker := false
		var relays []*protocol.Request
		for _, req := range reqs {
			switch req.Type {
			case protocol.MsgNewTransaction:
				sawMarker = true
			case protocol.MsgNewPeer:
				relays = append(relays, req)
			}
		}
		if !sawMarker {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if len(relays) != 1 {
			t.Fatalf("newcomer was relayed %d times, want exactly once", len(relays))
		}
		if relays[0].Peer == nil || *relays[0].Peer != newcomer {
			t.Fatalf("relay carries peer %+v, want %+v", relays[0].Peer, newcomer)
		}
		if relays[0].Sender != n.Self() {
			t.Fatalf("relay sent by %+v, want the relaying node itself", relays[0].Sender)
		}
		return
	}
	t.Fatal("the relayed peer announcement never arrived")
}

func TestResolveAdoptsTheLongestChain(t *testing.T) {
	a := startNode(t)
	b := startNode(t)

	a.Submit(Command{Kind: CmdMine})
	a.Submit(Command{Kind: CmdMine})
	awaitChain(t, a, 3)

	b.Submit(Command{Kind: CmdAddPeer, Address: a.Self().Address})
	b.Submit(Command{Kind: CmdResolve})

	blocks := awaitChain(t, b, 3)
	if !ledger.IsValidChain(blocks) {
		t.Fatal("adopted chain is invalid")
	}

	// a second resolve against the now equal-length peer changes nothing
	b.Submit(Command{Kind: CmdResolve})
	blocks = awaitChain(t, b, 3)
	if len(blocks) != 3 {
		t.Fatalf("chain has length %d after no-op resolve, want 3", len(blocks))
	}
}
