package node

import (
	"encoding/json"
	"net"
	"os"
	"time"

	"github.com/ixxchan/nb/ledger"
	"github.com/ixxchan/nb/protocol"

	log "github.com/sirupsen/logrus"
)

// handleRequest serves one inbound request: register the sender as a
// peer, dispatch by variant, write exactly one response.
func (n *Node) handleRequest(conn net.Conn, req *protocol.Request) {
	defer conn.Close()

	n.addPeer(req.Sender)

	resp := protocol.Ack(n.self)
	switch req.Type {
	case protocol.MsgHello:
		// registration already happened above

	case protocol.MsgHowAreYou:
		resp = protocol.MyBlocks(n.self, n.chain.Blocks())

	case protocol.MsgNewTransaction:
		if n.chain.AdmitTransaction(req.Transaction) {
			log.Infof("Transaction %s received from %s", req.Transaction.ID, req.Sender.ID)
			n.enqueueGossip(protocol.AnnounceTransaction(n.self, req.Transaction), expectAck)
		} else {
			log.Debugf("Redundant incoming transaction %s, simply drop it", req.Transaction.ID)
		}

	case protocol.MsgNewBlock:
		if n.chain.AppendBlock(req.Block) {
			log.Infof("Block %d received from %s and appended", req.Block.Index, req.Sender.ID)
			n.enqueueGossip(protocol.AnnounceBlock(n.self, n.chain.LastBlock()), expectAck)
		} else if req.Block.Index > uint64(n.chain.Len()) {
			// too new; resolution is left to the operator or the ticker
			log.Debugf("Block %d is ahead of our chain of length %d", req.Block.Index, n.chain.Len())
		}

	case protocol.MsgNewPeer:
		if n.addPeer(*req.Peer) {
			n.enqueueGossip(protocol.AnnouncePeer(n.self, *req.Peer), expectAck)
		}
	}

	if err := conn.SetWriteDeadline(time.Now().Add(protocol.Timeout)); err != nil {
		log.Warnf("Failed to set write deadline for %s: %v", conn.RemoteAddr(), err)
	}
	if err := protocol.WriteResponse(conn, resp); err != nil {
		log.Errorf("Failed to respond to %s: %v", conn.RemoteAddr(), err)
	}
}

func (n *Node) handleCommand(cmd Command) {
	switch cmd.Kind {
	case CmdNewTransaction:
		tx := ledger.NewTransaction(cmd.Sender, cmd.Recipient, cmd.Amount)
		if !n.chain.AdmitTransaction(tx) {
			log.Info("Transaction already exists")
			return
		}
		log.Infof("A new transaction is added: %s -> %s, amount: %d", cmd.Sender, cmd.Recipient, cmd.Amount)
		n.enqueueGossip(protocol.AnnounceTransaction(n.self, tx), expectAck)

	case CmdDisplay:
		n.displayChain()

	case CmdAddPeer:
		if n.greet(cmd.Address) {
			log.Infof("Peer %s added", cmd.Address)
		} else {
			log.Errorf("Fail to add peer %s", cmd.Address)
		}

	case CmdDisplayPeers:
		n.displayPeers()

	case CmdResolve:
		if n.resolve() {
			log.Info("Our chain was replaced")
		} else {
			log.Info("Our chain is authoritative, node stays unchanged")
		}

	case CmdMine:
		n.mine()

	default:
		log.Errorf("Unknown command kind %d", cmd.Kind)
	}
}

func (n *Node) displayChain() {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n.chain.Blocks()); err != nil {
		log.Errorf("Fail to display blockchain: %v", err)
	}
}

func (n *Node) displayPeers() {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n.peers.Snapshot()); err != nil {
		log.Errorf("Fail to display peers: %v", err)
	}
}
