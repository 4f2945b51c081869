// Package protocol defines the wire vocabulary between ledger nodes and
// moves it over TCP. A connection carries exactly one request and exactly
// one response.
package protocol

import (
	"errors"
	"fmt"

	"github.com/ixxchan/nb/ledger"
	"github.com/ixxchan/nb/peer"
)

type MsgType uint8

const (
	MsgHello MsgType = iota + 1
	MsgHowAreYou
	MsgNewTransaction
	MsgNewBlock
	MsgNewPeer

	MsgAck
	MsgMyBlocks
)

var (
	ErrUnknownMessage     = errors.New("unknown message type")
	ErrMissingPayload     = errors.New("missing message payload")
	ErrUnexpectedResponse = errors.New("unexpected response variant")
)

// Request is the envelope for all five request variants. Sender is always
// the identity of the node that opened the connection; the payload field
// matching Type is set, the others stay empty.
type Request struct {
	Type        MsgType             `cbor:"1,keyasint,omitempty"`
	Sender      peer.Info           `cbor:"2,keyasint"`
	Transaction *ledger.Transaction `cbor:"3,keyasint,omitempty"`
	Block       *ledger.Block       `cbor:"4,keyasint,omitempty"`
	Peer        *peer.Info          `cbor:"5,keyasint,omitempty"`
}

// Response is the envelope for the two response variants. Every request
// is answered by exactly one response: MyBlocks for HowAreYou, Ack for
// everything else.
type Response struct {
	Type   MsgType         `cbor:"1,keyasint,omitempty"`
	Sender peer.Info       `cbor:"2,keyasint"`
	Blocks []*ledger.Block `cbor:"3,keyasint,omitempty"`
}

func Hello(self peer.Info) *Request {
	return &Request{Type: MsgHello, Sender: self}
}

func HowAreYou(self peer.Info) *Request {
	return &Request{Type: MsgHowAreYou, Sender: self}
}

func AnnounceTransaction(self peer.Info, tx *ledger.Transaction) *Request {
	return &Request{Type: MsgNewTransaction, Sender: self, Transaction: tx}
}

func AnnounceBlock(self peer.Info, block *ledger.Block) *Request {
	return &Request{Type: MsgNewBlock, Sender: self, Block: block}
}

func AnnouncePeer(self peer.Info, p peer.Info) *Request {
	return &Request{Type: MsgNewPeer, Sender: self, Peer: &p}
}

func Ack(self peer.Info) *Response {
	return &Response{Type: MsgAck, Sender: self}
}

func MyBlocks(self peer.Info, blocks []*ledger.Block) *Response {
	return &Response{Type: MsgMyBlocks, Sender: self, Blocks: blocks}
}

func (r *Request) validate() error {
	switch r.Type {
	case MsgHello, MsgHowAreYou:
	case MsgNewTransaction:
		if r.Transaction == nil {
			return fmt.Errorf("%w: transaction", ErrMissingPayload)
		}
	case MsgNewBlock:
		if r.Block == nil {
			return fmt.Errorf("%w: block", ErrMissingPayload)
		}
	case MsgNewPeer:
		if r.Peer == nil {
			return fmt.Errorf("%w: peer", ErrMissingPayload)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMessage, r.Type)
	}
	return nil
}

func (r *Response) validate() error {
	switch r.Type {
	case MsgAck, MsgMyBlocks:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMessage, r.Type)
	}
}

// ExpectAck returns ErrUnexpectedResponse unless the response is an Ack.
func (r *Response) ExpectAck() error {
	if r.Type != MsgAck {
		return fmt.Errorf("%w: got %d, want Ack", ErrUnexpectedResponse, r.Type)
	}
	return nil
}
