package node

import (
	"github.com/ixxchan/nb/ledger"
	"github.com/ixxchan/nb/peer"
	"github.com/ixxchan/nb/protocol"

	log "github.com/sirupsen/logrus"
)

// The mining reward: sender "0" marks a freshly minted coin.
const (
	rewardSender = "0"
	rewardAmount = 1
)

func expectAck(resp *protocol.Response) error {
	return resp.ExpectAck()
}

// broadcast sends req to every peer in a registry snapshot, sequentially.
// A failed peer contributes nothing this round and never aborts the rest.
func (n *Node) broadcast(req *protocol.Request, handle func(*protocol.Response) error) {
	peers := n.peers.Snapshot()
	log.Debugf("Broadcasting message type %d to %d peers", req.Type, len(peers))
	for _, p := range peers {
		resp, err := protocol.Do(p.Address, req)
		if err != nil {
			log.Debugf("Broadcast to %s failed: %v", p.Address, err)
			continue
		}
		if err := handle(resp); err != nil {
			log.Errorf("Bad response from %s: %v", p.ID, err)
		}
	}
}

// greet dials an operator-supplied address, introduces ourselves and
// registers whoever answers. A newly met peer is gossiped to the others;
// that is where NewPeer traffic originates.
func (n *Node) greet(address string) bool {
	resolved, err := peer.ResolveAddress(address)
	if err != nil {
		log.Errorf("%v", err)
		return false
	}
	resp, err := protocol.Do(resolved, protocol.Hello(n.self))
	if err != nil {
		log.Errorf("Hello to %s failed: %v", resolved, err)
		return false
	}
	if err := resp.ExpectAck(); err != nil {
		log.Errorf("Hello to %s: %v", resolved, err)
		return false
	}
	if !n.addPeer(resp.Sender) {
		return false
	}
	n.enqueueGossip(protocol.AnnouncePeer(n.self, resp.Sender), expectAck)
	return true
}

// mine forges the next block: brute-force a proof, claim the reward, and
// drain the pool into a block. The reward transaction is admitted before
// block creation so it rides in the very block it rewards, and is never
// gossiped standalone.
func (n *Node) mine() {
	last := n.chain.LastBlock()
	proof := ledger.ProofOfWork(last.Proof)
	n.chain.AdmitTransaction(ledger.NewTransaction(rewardSender, n.self.ID, rewardAmount))

	block := n.chain.CreateBlock(proof, last.Hash())
	log.Infof("A new block %d is forged with %d transactions, will broadcast it to all peers",
		block.Index, len(block.Transactions))
	n.enqueueGossip(protocol.AnnounceBlock(n.self, block), expectAck)
}

// resolve asks every peer for its full chain and adopts the longest valid
// one. Returns whether any adoption happened. Peers are tried
// independently; one failure never aborts the rest.
func (n *Node) resolve() bool {
	adopted := false
	for _, p := range n.peers.Snapshot() {
		resp, err := protocol.Do(p.Address, protocol.HowAreYou(n.self))
		if err != nil {
			log.Errorf("Error when communicating with %s: %v", p.Address, err)
			continue
		}
		if resp.Type != protocol.MsgMyBlocks {
			log.Errorf("Peer %s: %v", p.ID, protocol.ErrUnexpectedResponse)
			continue
		}
		if n.chain.Adopt(resp.Blocks) {
			log.Infof("Adopted a chain of length %d from %s", n.chain.Len(), p.ID)
			adopted = true
		}
	}
	if adopted {
		// let the neighborhood know about our new tip
		n.enqueueGossip(protocol.AnnounceBlock(n.self, n.chain.LastBlock()), expectAck)
	}
	return adopted
}
