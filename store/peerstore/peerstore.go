// Package peerstore persists known peers in LevelDB so a restarted node
// can warm its registry. The chain itself is never persisted.
package peerstore

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/ixxchan/nb/peer"

	log "github.com/sirupsen/logrus"
)

const keyPrefixPeer = "PER" // followed by id "@" address

type Store struct {
	path string
	mu   sync.Mutex
	db   *leveldb.DB
}

func Open(path string) (*Store, error) {
	opts := &opt.Options{
		Compression: opt.NoCompression,
	}

	db, err := leveldb.OpenFile(path, opts)
	if errors.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("Opened peer cache at %s", path)

	return &Store{path: path, db: db}, nil
}

func keyFromPeer(p peer.Info) []byte {
	return []byte(keyPrefixPeer + p.ID + "@" + p.Address)
}

// Put records a peer. Writing the same peer again is a harmless overwrite.
func (s *Store) Put(p peer.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := cbor.Marshal(&p)
	if err != nil {
		return err
	}
	return s.db.Put(keyFromPeer(p), raw, nil)
}

// Enumerate returns every cached peer.
func (s *Store) Enumerate() ([]peer.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var peers []peer.Info

	iter := s.db.NewIterator(util.BytesPrefix([]byte(keyPrefixPeer)), nil)
	defer iter.Release()

	for iter.Next() {
		var p peer.Info
		if err := cbor.Unmarshal(iter.Value(), &p); err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, iter.Error()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
