package node

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/ixxchan/nb/protocol"

	log "github.com/sirupsen/logrus"
)

// serveListener accepts inbound connections and forwards one decoded
// request per connection to the event loop. It is a thin conduit: the
// loop owns the connection from then on.
func (n *Node) serveListener(ctx context.Context) error {
	// Closing the listener unblocks Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		if err := n.listener.Close(); err != nil {
			log.Warnf("Error closing listener %s: %v", n.listener.Addr(), err)
		}
	}()

	var tempDelay time.Duration // how long to sleep on accept failure
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Infof("Listener %s shutting down", n.listener.Addr())
				return ctx.Err()
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				log.Warnf("Accept error on %s: %v; retrying in %v", n.listener.Addr(), err, tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			log.Errorf("Critical accept error on %s: %v", n.listener.Addr(), err)
			return err
		}
		tempDelay = 0

		log.Debugf("Accepted connection from %s", conn.RemoteAddr())
		go n.readRequest(ctx, conn)
	}
}

// readRequest decodes the single request a connection carries and hands
// it to the event loop. A malformed request drops the connection, never
// the process.
func (n *Node) readRequest(ctx context.Context, conn net.Conn) {
	if err := conn.SetDeadline(time.Now().Add(protocol.Timeout)); err != nil {
		log.Warnf("Failed to set deadline for %s: %v", conn.RemoteAddr(), err)
	}

	req, err := protocol.ReadRequest(conn)
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Debugf("Connection %s closed before a request arrived", conn.RemoteAddr())
		} else {
			log.Errorf("Dropping connection %s: %v", conn.RemoteAddr(), err)
		}
		conn.Close()
		return
	}

	select {
	case n.events <- requestEvent{conn: conn, req: req}:
	case <-ctx.Done():
		conn.Close()
	}
}
