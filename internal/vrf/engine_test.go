package vrf

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"vfnode/internal/wire"
)

func testEngine() *Engine {
	var seed [32]byte
	for i := range seed {
		seed[i] = 42
	}
	return FromSeed(seed)
}

func testRequest() *wire.CoinflipRequest {
	return &wire.CoinflipRequest{UserSeed: "hello", Timestamp: 1700000000}
}

func TestProcessIsDeterministic(t *testing.T) {
	e := testEngine()

	r1, err := e.Process(testRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	r2, err := e.Process(testRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if r1.Heads != r2.Heads {
		t.Fatal("outcome not deterministic")
	}
	if r1.Proof != r2.Proof {
		t.Fatalf("proof not deterministic:\n%+v\n%+v", r1.Proof, r2.Proof)
	}
	if r1.NodeID != e.NodePubkey() {
		t.Fatalf("node id %q is not the engine pubkey", r1.NodeID)
	}
}

func TestInputsChangeOutcomeProof(t *testing.T) {
	e := testEngine()

	base, err := e.Process(testRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	otherSeed, err := e.Process(&wire.CoinflipRequest{UserSeed: "hello2", Timestamp: 1700000000})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	otherTime, err := e.Process(&wire.CoinflipRequest{UserSeed: "hello", Timestamp: 1700000001})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if base.Proof.Signature == otherSeed.Proof.Signature {
		t.Fatal("seed change did not change the signature")
	}
	if base.Proof.Signature == otherTime.Proof.Signature {
		t.Fatal("timestamp change did not change the signature")
	}
}

func TestVerifyAcceptsOwnProof(t *testing.T) {
	e := testEngine()
	resp, err := e.Process(testRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	ok, err := e.Verify(&resp.Proof, testRequest())
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	e := testEngine()
	resp, err := e.Process(testRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	sig, err := base64.StdEncoding.DecodeString(resp.Proof.Signature)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sig[0] ^= 0xff
	tampered := resp.Proof
	tampered.Signature = base64.StdEncoding.EncodeToString(sig)

	ok, err := e.Verify(&tampered, testRequest())
	if ok {
		t.Fatal("tampered signature verified")
	}
	if !errors.Is(err, wire.ErrInvalidProof) {
		t.Fatalf("expected invalid proof kind, got %v", err)
	}
}

func TestVerifyRejectsWrongRequest(t *testing.T) {
	e := testEngine()
	resp, err := e.Process(testRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	ok, _ := e.Verify(&resp.Proof, &wire.CoinflipRequest{UserSeed: "other", Timestamp: 1700000000})
	if ok {
		t.Fatal("proof verified against a different request")
	}
}

func TestVerifyRejectsBadEncoding(t *testing.T) {
	e := testEngine()
	resp, err := e.Process(testRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	bad := resp.Proof
	bad.SeedCommitment = "%%%not-base64%%%"
	if ok, err := e.Verify(&bad, testRequest()); ok || !errors.Is(err, wire.ErrInvalidProof) {
		t.Fatalf("bad commitment encoding: ok=%v err=%v", ok, err)
	}

	short := resp.Proof
	short.Signature = base64.StdEncoding.EncodeToString([]byte("short"))
	if ok, err := e.Verify(&short, testRequest()); ok || !errors.Is(err, wire.ErrInvalidProof) {
		t.Fatalf("short signature: ok=%v err=%v", ok, err)
	}
}

// The public fields alone must let a client recompute the outcome.
func TestOutcomeRecomputableFromProof(t *testing.T) {
	e := testEngine()
	resp, err := e.Process(testRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	sig, err := base64.StdEncoding.DecodeString(resp.Proof.Signature)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if len(sig) != ed25519.SignatureSize {
		t.Fatalf("signature length %d", len(sig))
	}
	hash := sha256.Sum256(sig)
	randomValue := binary.LittleEndian.Uint64(hash[:8])

	output, err := base64.StdEncoding.DecodeString(resp.Proof.VrfOutput)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(output) != 8 || binary.LittleEndian.Uint64(output) != randomValue {
		t.Fatalf("vrf_output does not encode the random value")
	}
	if resp.Heads != (randomValue&1 == 0) {
		t.Fatal("heads does not match random value parity")
	}
}

func TestSeedCommitmentIsPubkeyHash(t *testing.T) {
	e := testEngine()
	resp, err := e.Process(testRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	pub, err := base64.StdEncoding.DecodeString(e.NodePubkey())
	if err != nil {
		t.Fatalf("decode pubkey: %v", err)
	}
	want := sha256.Sum256(pub)
	got, err := base64.StdEncoding.DecodeString(resp.Proof.SeedCommitment)
	if err != nil {
		t.Fatalf("decode commitment: %v", err)
	}
	if string(got) != string(want[:]) {
		t.Fatal("commitment is not the sha256 of the node pubkey")
	}
}

func TestValidation(t *testing.T) {
	e := testEngine()

	if _, err := e.Process(&wire.CoinflipRequest{UserSeed: "", Timestamp: 1}); !errors.Is(err, wire.ErrInvalidInput) {
		t.Fatalf("empty seed: %v", err)
	}
	long := strings.Repeat("a", 1025)
	if _, err := e.Process(&wire.CoinflipRequest{UserSeed: long, Timestamp: 1}); !errors.Is(err, wire.ErrInvalidInput) {
		t.Fatalf("long seed: %v", err)
	}
	// Exactly at the limit is fine.
	if _, err := e.Process(&wire.CoinflipRequest{UserSeed: strings.Repeat("a", 1024), Timestamp: 1}); err != nil {
		t.Fatalf("1024-byte seed rejected: %v", err)
	}
}

func TestFreshKeysDiffer(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.NodePubkey() == b.NodePubkey() {
		t.Fatal("two fresh engines share a pubkey")
	}
}
