package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// difficultyPrefix is the run of zero hex characters a proof digest must
// start with. System-wide constant.
const difficultyPrefix = "0000"

// ValidProof reports whether the digest of the decimal concatenation of
// lastProof and proof starts with the required run of zeroes.
func ValidProof(lastProof, proof uint64) bool {
	sum := sha256.Sum256([]byte(strconv.FormatUint(lastProof, 10) + strconv.FormatUint(proof, 10)))
	return strings.HasPrefix(hex.EncodeToString(sum[:]), difficultyPrefix)
}

// ProofOfWork brute-forces the smallest proof valid against lastProof.
// CPU-bound and runs to completion on the caller.
func ProofOfWork(lastProof uint64) uint64 {
	var proof uint64
	for !ValidProof(lastProof, proof) {
		proof++
	}
	return proof
}
