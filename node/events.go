package node

import (
	"net"

	"github.com/ixxchan/nb/protocol"
)

// Events for the single-consumer loop. Three producers exist: the
// listener, the command front end, and the loop itself when it queues
// outbound gossip.

type event interface{}

// A decoded request from an inbound connection, still owning the
// connection so the loop can write the response.
type requestEvent struct {
	conn net.Conn
	req  *protocol.Request
}

// An outbound request to send to every peer in a registry snapshot.
// handle sees each peer's response.
type broadcastEvent struct {
	req    *protocol.Request
	handle func(*protocol.Response) error
}

// An operator command forwarded from the front end.
type commandEvent struct {
	cmd Command
}

// CommandKind enumerates the closed set of operator commands.
type CommandKind int

const (
	CmdNewTransaction CommandKind = iota + 1
	CmdDisplay
	CmdAddPeer
	CmdDisplayPeers
	CmdResolve
	CmdMine
)

// Command is the narrow interface the front end drives the node through.
// Sender/Recipient/Amount are set for CmdNewTransaction, Address for
// CmdAddPeer.
type Command struct {
	Kind      CommandKind
	Sender    string
	Recipient string
	Amount    int64
	Address   string
}
