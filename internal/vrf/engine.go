package vrf

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"

	"vfnode/internal/wire"

	"github.com/gtank/merlin"
)

const (
	transcriptLabel = "vf_coinflip"
	challengeLen    = 64
	maxSeedLen      = 1024
)

// Engine derives binary outcomes and proofs from a long-lived ed25519
// keypair. It holds no mutable state and is safe to share across goroutines.
type Engine struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// New creates an engine with a fresh random keypair.
func New() (*Engine, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, wire.VrfFailed("keypair generation: " + err.Error())
	}
	return &Engine{priv: priv, pub: pub}, nil
}

// FromSeed creates an engine with a deterministic keypair, for reproducible
// tests.
func FromSeed(seed [32]byte) *Engine {
	priv := ed25519.NewKeyFromSeed(seed[:])
	return &Engine{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

// NodePubkey is the externally visible node identity.
func (e *Engine) NodePubkey() string {
	return base64.StdEncoding.EncodeToString(e.pub)
}

// Process resolves one coinflip. Deterministic over (key, request): heads,
// commitment, output and signature are byte-identical across calls; only
// the response timestamp and elapsed time vary.
func (e *Engine) Process(req *wire.CoinflipRequest) (*wire.CoinflipResponse, error) {
	start := time.Now()

	if err := validate(req); err != nil {
		return nil, err
	}

	seedCommit := sha256.Sum256(e.pub)
	challenge := e.challenge(req, seedCommit[:])
	sig := ed25519.Sign(e.priv, challenge)

	outputHash := sha256.Sum256(sig)
	randomValue := binary.LittleEndian.Uint64(outputHash[:8])
	heads := randomValue&1 == 0

	var output [8]byte
	binary.LittleEndian.PutUint64(output[:], randomValue)

	return &wire.CoinflipResponse{
		NodeID: e.NodePubkey(),
		Heads:  heads,
		Proof: wire.VrfProof{
			SeedCommitment: base64.StdEncoding.EncodeToString(seedCommit[:]),
			VrfOutput:      base64.StdEncoding.EncodeToString(output[:]),
			Signature:      base64.StdEncoding.EncodeToString(sig),
		},
		Timestamp:        uint64(time.Now().Unix()),
		ProcessingTimeMS: uint64(time.Since(start).Milliseconds()),
	}, nil
}

// Verify checks a proof against the request it claims to resolve. The
// transcript is rebuilt from the proof's own commitment bytes, so a proof
// for a different node key fails the signature check rather than the
// reconstruction.
func (e *Engine) Verify(proof *wire.VrfProof, req *wire.CoinflipRequest) (bool, error) {
	seedCommit, err := base64.StdEncoding.DecodeString(proof.SeedCommitment)
	if err != nil {
		return false, wire.InvalidProof("seed commitment encoding")
	}
	sig, err := base64.StdEncoding.DecodeString(proof.Signature)
	if err != nil {
		return false, wire.InvalidProof("signature encoding")
	}
	if len(sig) != ed25519.SignatureSize {
		return false, wire.InvalidProof("signature length")
	}

	challenge := e.challenge(req, seedCommit)
	if !ed25519.Verify(e.pub, challenge, sig) {
		return false, wire.InvalidProof("signature verification failed")
	}
	return true, nil
}

func validate(req *wire.CoinflipRequest) error {
	if req.UserSeed == "" {
		return wire.InvalidInput("user seed cannot be empty")
	}
	if len(req.UserSeed) > maxSeedLen {
		return wire.InvalidInput("user seed too long")
	}
	return nil
}

func (e *Engine) challenge(req *wire.CoinflipRequest, seedCommit []byte) []byte {
	t := merlin.NewTranscript(transcriptLabel)
	t.AppendMessage([]byte("user_seed"), []byte(req.UserSeed))
	t.AppendMessage([]byte("node_pubkey"), e.pub)
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], req.Timestamp)
	t.AppendMessage([]byte("timestamp"), ts[:])
	t.AppendMessage([]byte("seed_commit"), seedCommit)
	return t.ExtractBytes([]byte("challenge"), challengeLen)
}
