// Package node runs the ledger node: a single event loop owning the
// blockchain and the peer registry, fed by the TCP listener and the
// command front end.
package node

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"
	"github.com/ixxchan/nb/helper/timer"
	"github.com/ixxchan/nb/ledger"
	"github.com/ixxchan/nb/peer"
	"github.com/ixxchan/nb/protocol"
	"github.com/ixxchan/nb/store/peerstore"

	log "github.com/sirupsen/logrus"
)

// eventQueueSize bounds the multi-producer queue. Producers block only if
// the loop is already far behind.
const eventQueueSize = 256

type Options struct {
	// AdvertisedAddress is the address peers should dial back. Defaults
	// to the listener's own address.
	AdvertisedAddress string

	// ResolveInterval runs conflict resolution periodically when > 0.
	ResolveInterval time.Duration

	// PeerCache persists known peers across restarts when non-nil.
	PeerCache *peerstore.Store
}

// Node owns exactly one Blockchain and one Registry. Only the event loop
// touches them; every other goroutine is a pure event producer.
type Node struct {
	self     peer.Info
	chain    *ledger.Blockchain
	peers    *peer.Registry
	events   chan event
	listener net.Listener

	resolveInterval time.Duration
	cache           *peerstore.Store
}

func New(listener net.Listener, opts Options) (*Node, error) {
	address := opts.AdvertisedAddress
	if address == "" {
		address = listener.Addr().String()
	}
	resolved, err := peer.ResolveAddress(address)
	if err != nil {
		return nil, err
	}

	self := peer.Info{ID: uuid.NewString(), Address: resolved}
	n := &Node{
		self:            self,
		chain:           ledger.New(),
		peers:           peer.NewRegistry(self),
		events:          make(chan event, eventQueueSize),
		listener:        listener,
		resolveInterval: opts.ResolveInterval,
		cache:           opts.PeerCache,
	}

	if n.cache != nil {
		cached, err := n.cache.Enumerate()
		if err != nil {
			log.Errorf("Failed to read peer cache: %v", err)
		}
		for _, p := range cached {
			if n.peers.Add(p) {
				log.Debugf("Peer %s @ %s restored from cache", p.ID, p.Address)
			}
		}
	}

	log.Infof("I am %s, listening on %s", self.ID, self.Address)

	return n, nil
}

// Self returns this node's identity.
func (n *Node) Self() peer.Info {
	return n.self
}

// Submit queues an operator command. Commands are processed in arrival
// order, one at a time.
func (n *Node) Submit(cmd Command) {
	n.events <- commandEvent{cmd: cmd}
}

// Run serves inbound connections and drains the event queue until the
// context is cancelled.
func (n *Node) Run(ctx context.Context) error {
	wg, cctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		return n.serveListener(cctx)
	})

	wg.Go(func() error {
		return n.runLoop(cctx)
	})

	if n.resolveInterval > 0 {
		wg.Go(func() error {
			interval := &timer.Interval{Duration: n.resolveInterval}
			return timer.RunWithTicker(cctx, interval, func(context.Context) error {
				n.Submit(Command{Kind: CmdResolve})
				return nil
			})
		})
	}

	return wg.Wait()
}

// runLoop is the sole owner of the chain and the registry. A failure
// handling one event is isolated to that event.
func (n *Node) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-n.events:
			n.handleEvent(ev)
		}
	}
}

func (n *Node) handleEvent(ev event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Event dropped after panic: %v", r)
		}
	}()

	switch ev := ev.(type) {
	case requestEvent:
		n.handleRequest(ev.conn, ev.req)
	case broadcastEvent:
		n.broadcast(ev.req, ev.handle)
	case commandEvent:
		n.handleCommand(ev.cmd)
	}
}

// enqueueGossip queues a broadcast from within the loop itself. The queue
// may be full of events the loop has yet to drain, so never block here;
// gossip is best-effort anyway.
func (n *Node) enqueueGossip(req *protocol.Request, handle func(*protocol.Response) error) {
	select {
	case n.events <- broadcastEvent{req: req, handle: handle}:
	default:
		log.Warnf("Event queue full, dropping broadcast of message type %d", req.Type)
	}
}

// addPeer inserts a peer into the registry and, when newly added, records
// it in the cache.
func (n *Node) addPeer(p peer.Info) bool {
	if !n.peers.Add(p) {
		return false
	}
	log.Infof("New peer added: %s @ %s", p.ID, p.Address)
	if n.cache != nil {
		if err := n.cache.Put(p); err != nil {
			log.Errorf("Failed to cache peer %s: %v", p.ID, err)
		}
	}
	return true
}
