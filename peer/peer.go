// Package peer holds peer identities and the node's registry of known peers.
package peer

import (
	"fmt"
	"net"

	"github.com/google/uuid"
)

// Info is a peer's self-asserted identity: a unique id plus its resolved
// network address. Equality is by the full value.
type Info struct {
	ID      string `cbor:"1,keyasint,omitempty" json:"id"`
	Address string `cbor:"2,keyasint,omitempty" json:"address"`
}

// ResolveAddress resolves a host:port string once into a single concrete
// socket address. Resolution failure fails the caller rather than retry.
func ResolveAddress(address string) (string, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", address, err)
	}
	return addr.String(), nil
}

// NewInfo mints an identity for this node at the given address.
func NewInfo(address string) (Info, error) {
	resolved, err := ResolveAddress(address)
	if err != nil {
		return Info{}, err
	}
	return Info{ID: uuid.NewString(), Address: resolved}, nil
}
