package ledger

import "testing"

func TestValidProofFixtures(t *testing.T) {
	if !ValidProof(100, 35293) {
		t.Fatal("proof 35293 should be valid against 100")
	}
	if !ValidProof(35293, 35089) {
		t.Fatal("proof 35089 should be valid against 35293")
	}
	if ValidProof(100, 35292) {
		t.Fatal("proof 35292 should not be valid against 100")
	}
}

func TestProofOfWorkFindsMinimalProof(t *testing.T) {
	if got := ProofOfWork(100); got != 35293 {
		t.Fatalf("ProofOfWork(100) = %d, want 35293", got)
	}
	if got := ProofOfWork(35293); got != 35089 {
		t.Fatalf("ProofOfWork(35293) = %d, want 35089", got)
	}
}

func TestProofOfWorkSatisfiesValidProof(t *testing.T) {
	for _, last := range []uint64{0, 1, 100, 35293} {
		if proof := ProofOfWork(last); !ValidProof(last, proof) {
			t.Fatalf("ProofOfWork(%d) = %d does not satisfy ValidProof", last, proof)
		}
	}
}
