// Package cli is the interactive front end: it parses typed lines into
// node commands and forwards them. It never touches chain or peer state.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ixxchan/nb/node"
)

const (
	cmdNewTrans   = "new_trans"
	cmdListBlocks = "list_blocks"
	cmdAddPeer    = "add_peer"
	cmdListPeers  = "list_peers"
	cmdResolve    = "resolve"
	cmdMine       = "mine"
	cmdHelp       = "help"
	cmdExit       = "exit"
)

var errExit = errors.New("exit")

// Parse turns one input line into a command. A nil command with a nil
// error means the line asked for nothing (blank, or help).
func Parse(line string) (*node.Command, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil, nil
	}

	switch args[0] {
	case cmdNewTrans:
		if len(args) < 4 {
			return nil, errors.New("not enough arguments")
		}
		amount, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return nil, errors.New("illegal amount")
		}
		return &node.Command{
			Kind:      node.CmdNewTransaction,
			Sender:    args[1],
			Recipient: args[2],
			Amount:    amount,
		}, nil
	case cmdMine:
		return &node.Command{Kind: node.CmdMine}, nil
	case cmdListBlocks:
		return &node.Command{Kind: node.CmdDisplay}, nil
	case cmdAddPeer:
		if len(args) < 2 {
			return nil, errors.New("not enough arguments")
		}
		return &node.Command{Kind: node.CmdAddPeer, Address: args[1]}, nil
	case cmdListPeers:
		return &node.Command{Kind: node.CmdDisplayPeers}, nil
	case cmdResolve:
		return &node.Command{Kind: node.CmdResolve}, nil
	case cmdHelp:
		listCommands()
		return nil, nil
	case cmdExit:
		return nil, errExit
	default:
		return nil, errors.New("command not found, type 'help' to list commands")
	}
}

// Run reads lines until exit, EOF or context cancellation, forwarding
// parsed commands to the node. Returns nil when the operator asks to
// leave. Input is read on a separate goroutine so a dead node does not
// leave the process waiting for one last keystroke.
func Run(ctx context.Context, in io.Reader, n *node.Node) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	fmt.Print("> ")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			cmd, err := Parse(line)
			switch {
			case errors.Is(err, errExit):
				return nil
			case err != nil:
				fmt.Println(err)
			case cmd != nil:
				n.Submit(*cmd)
			}
			fmt.Print("> ")
		}
	}
}

func listCommands() {
	fmt.Print(
		"ledger node commands:\n" +
			"  mine - mines a new block\n" +
			"  new_trans [sender] [recipient] [amount] - adds a new transaction\n" +
			"  list_blocks - list the local chain blocks\n" +
			"  add_peer [addr:port] - add one node as a peer\n" +
			"  list_peers - list the node's peers\n" +
			"  resolve - apply the consensus algorithm to resolve conflicts\n" +
			"  exit - quit the program\n")
}
