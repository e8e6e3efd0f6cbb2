package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"vfnode/internal/settlement"
	"vfnode/internal/store"
	"vfnode/internal/vrf"
	"vfnode/internal/wire"
)

func newTestServer(t *testing.T) (*httptest.Server, *vrf.Engine) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "vfnode_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	var seed [32]byte
	for i := range seed {
		seed[i] = 42
	}
	eng := vrf.FromSeed(seed)

	pipe := settlement.New(st, settlement.NewMockDriver(0), settlement.Config{})
	srv := httptest.NewServer(newRouter(st, eng, pipe))
	t.Cleanup(srv.Close)
	return srv, eng
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestCoinflipEndpoint(t *testing.T) {
	srv, eng := newTestServer(t)

	resp := postJSON(t, srv.URL+"/coinflip", `{"user_seed":"hello","timestamp":1700000000}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type %q", ct)
	}

	var out wire.CoinflipResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.NodeID != eng.NodePubkey() {
		t.Fatalf("node_id %q does not match engine pubkey", out.NodeID)
	}
	req := wire.CoinflipRequest{UserSeed: "hello", Timestamp: 1700000000}
	ok, err := eng.Verify(&out.Proof, &req)
	if err != nil || !ok {
		t.Fatalf("proof did not verify: ok=%v err=%v", ok, err)
	}
}

func TestCoinflipSeedAlias(t *testing.T) {
	srv, _ := newTestServer(t)

	r1 := postJSON(t, srv.URL+"/coinflip", `{"user_seed":"alias-check","timestamp":7}`)
	r2 := postJSON(t, srv.URL+"/coinflip", `{"seed":"alias-check","timestamp":7}`)
	if r1.StatusCode != http.StatusOK || r2.StatusCode != http.StatusOK {
		t.Fatalf("status %d / %d", r1.StatusCode, r2.StatusCode)
	}
	var o1, o2 wire.CoinflipResponse
	if err := json.NewDecoder(r1.Body).Decode(&o1); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.NewDecoder(r2.Body).Decode(&o2); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Both spellings feed the same transcript, so the proofs are identical.
	if o1.Proof != o2.Proof || o1.Heads != o2.Heads {
		t.Fatalf("alias produced different outcome: %+v vs %+v", o1, o2)
	}
}

func TestCoinflipValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"empty seed", `{"user_seed":""}`, "invalid_input"},
		{"seed too long", `{"user_seed":"` + strings.Repeat("x", 1025) + `"}`, "invalid_input"},
		{"malformed json", `{"user_seed":`, "invalid_json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/coinflip", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", resp.StatusCode)
			}
			var out map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out["error"] != tc.code {
				t.Fatalf("error %q, want %q", out["error"], tc.code)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var out map[string]any
	resp := getJSON(t, srv.URL+"/health", &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if out["status"] != "ok" || out["service"] != "vfnode" {
		t.Fatalf("unexpected health payload: %+v", out)
	}
	if _, ok := out["timestamp"]; !ok {
		t.Fatal("timestamp missing")
	}
}

func TestInfoEndpoint(t *testing.T) {
	srv, eng := newTestServer(t)

	var out map[string]any
	resp := getJSON(t, srv.URL+"/info", &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if out["node_pubkey"] != eng.NodePubkey() {
		t.Fatalf("node_pubkey mismatch: %+v", out)
	}
	games, ok := out["supported_games"].([]any)
	if !ok || len(games) != 1 || games[0] != "coinflip" {
		t.Fatalf("supported_games wrong: %+v", out["supported_games"])
	}
}

func TestSettlementEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	var stats map[string]any
	if resp := getJSON(t, srv.URL+"/settlement/stats", &stats); resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d", resp.StatusCode)
	}
	for _, key := range []string{"total_bets_processed", "retry_queue_size", "channel_queue_size"} {
		if _, ok := stats[key]; !ok {
			t.Fatalf("stats missing %q: %+v", key, stats)
		}
	}

	var sum map[string]any
	if resp := getJSON(t, srv.URL+"/settlement/summary", &sum); resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status %d", resp.StatusCode)
	}
	if _, ok := sum["bets"]; !ok {
		t.Fatalf("summary missing bets block: %+v", sum)
	}
	if _, ok := sum["batches"]; !ok {
		t.Fatalf("summary missing batches block: %+v", sum)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
