package wire

import (
	"encoding/json"
	"time"
)

// CoinflipRequest is the player-facing wager request. The wire format
// accepts "seed" as an alias for "user_seed" and defaults the timestamp
// to the current wall clock when absent.
type CoinflipRequest struct {
	UserSeed  string `json:"user_seed"`
	Timestamp uint64 `json:"timestamp"`
}

func (r *CoinflipRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserSeed  *string `json:"user_seed"`
		Seed      *string `json:"seed"`
		Timestamp *uint64 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.UserSeed != nil:
		r.UserSeed = *raw.UserSeed
	case raw.Seed != nil:
		r.UserSeed = *raw.Seed
	default:
		r.UserSeed = ""
	}
	if raw.Timestamp != nil {
		r.Timestamp = *raw.Timestamp
	} else {
		r.Timestamp = uint64(time.Now().Unix())
	}
	return nil
}

// VrfProof binds an outcome to the node identity, the player seed and the
// request timestamp. All three fields are standard base64: the commitment is
// 32 bytes, the output 8 bytes, the signature 64 bytes.
type VrfProof struct {
	SeedCommitment string `json:"seed_commitment"`
	VrfOutput      string `json:"vrf_output"`
	Signature      string `json:"signature"`
}

type CoinflipResponse struct {
	NodeID           string   `json:"node_id"`
	Heads            bool     `json:"heads"`
	Proof            VrfProof `json:"proof"`
	Timestamp        uint64   `json:"timestamp"`
	ProcessingTimeMS uint64   `json:"processing_time_ms"`
}
