package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	log "github.com/sirupsen/logrus"
)

// Transaction is a transfer of some amount between two named parties.
// The id is the sole identity used for deduplication.
type Transaction struct {
	ID        string `cbor:"1,keyasint,omitempty" json:"id"`
	Sender    string `cbor:"2,keyasint,omitempty" json:"sender"`
	Recipient string `cbor:"3,keyasint,omitempty" json:"recipient"`
	Amount    int64  `cbor:"4,keyasint,omitempty" json:"amount"`
}

// NewTransaction creates a transaction with a freshly generated unique id.
func NewTransaction(sender, recipient string, amount int64) *Transaction {
	return &Transaction{
		ID:        uuid.NewString(),
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}
}

// Block is an immutable batch of transactions plus linkage to its
// predecessor and the proof-of-work value that forged it.
type Block struct {
	Index        uint64         `cbor:"1,keyasint,omitempty" json:"index"`
	Timestamp    int64          `cbor:"2,keyasint,omitempty" json:"timestamp"` // milliseconds since epoch
	Proof        uint64         `cbor:"3,keyasint,omitempty" json:"proof"`
	Transactions []*Transaction `cbor:"4,keyasint,omitempty" json:"transactions"`
	PreviousHash string         `cbor:"5,keyasint,omitempty" json:"previous_hash"`
}

const (
	genesisProof        = 100
	genesisPreviousHash = "1"
)

// Genesis returns the fixed sentinel block every chain is rooted at.
func Genesis() *Block {
	return &Block{
		Index:        0,
		Timestamp:    0,
		Proof:        genesisProof,
		PreviousHash: genesisPreviousHash,
	}
}

// detMode encodes blocks deterministically so the digest is a stable
// function of the block's full contents.
var detMode cbor.EncMode

func init() {
	var err error
	detMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		log.Fatalf("Failed to create deterministic CBOR encoder: %v", err)
	}
}

// Hash returns the hex digest of the block's serialized contents. Any
// one-bit change to the block changes the digest.
func (b *Block) Hash() string {
	raw, err := detMode.Marshal(b)
	if err != nil {
		// Block contains only CBOR-encodable fields, so this is unreachable
		// through the public contract.
		log.Fatalf("Failed to encode block %d: %v", b.Index, err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func now() int64 {
	return time.Now().UnixMilli()
}
