package protocol

import (
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

// Timeout bounds the dial and the whole request/response exchange with a
// peer. Exceeding it is treated exactly like a refused connection, so one
// unreachable peer cannot stall the caller indefinitely.
const Timeout = 5 * time.Second

// Do dials addr, writes one request and reads the single response. The
// connection is closed before returning.
func Do(addr string, req *Request) (*Response, error) {
	conn, err := net.DialTimeout("tcp", addr, Timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(Timeout)); err != nil {
		log.Warnf("Failed to set deadline on connection to %s: %v", addr, err)
	}

	if err := WriteRequest(conn, req); err != nil {
		return nil, fmt.Errorf("send request to %s: %w", addr, err)
	}
	resp, err := ReadResponse(conn)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", addr, err)
	}
	return resp, nil
}
