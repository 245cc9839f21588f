package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"healthScope/internal/model"
)

func TestDefaultLookup(t *testing.T) {
	r := Default()

	n, err := r.Lookup("Ethereum")
	if err != nil {
		t.Fatalf("lookup ethereum: %v", err)
	}
	if n.ChainID != 1 {
		t.Fatalf("chain id mismatch: %d", n.ChainID)
	}
	if n.Pool.Hex() != "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2" {
		t.Fatalf("pool mismatch: %s", n.Pool.Hex())
	}

	if got := len(r.Keys()); got != 7 {
		t.Fatalf("expected 7 networks, got %d", got)
	}
	if r.Keys()[0] != "arbitrum" {
		t.Fatalf("keys not sorted: %v", r.Keys())
	}
}

func TestLookupUnknownNetwork(t *testing.T) {
	_, err := Default().Lookup("fantom")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, model.ErrUnknownNetwork) {
		t.Fatalf("expected unknown network error, got %v", err)
	}
}

func TestLoadFileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "networks.yaml")
	content := `networks:
  - key: base
    rpc_url: https://base.example.org
  - key: scroll
    display_name: Scroll
    pool: "0x11fCfe756c05AD438e312a7fd934381537D3cFfe"
    rpc_url: https://rpc.scroll.io
    chain_id: 534352
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	r := Default()
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("load file: %v", err)
	}

	base, err := r.Lookup("base")
	if err != nil {
		t.Fatalf("lookup base: %v", err)
	}
	if base.RPCURL != "https://base.example.org" {
		t.Fatalf("rpc override not applied: %s", base.RPCURL)
	}
	if base.ChainID != 8453 {
		t.Fatalf("chain id lost on override: %d", base.ChainID)
	}

	scroll, err := r.Lookup("scroll")
	if err != nil {
		t.Fatalf("lookup scroll: %v", err)
	}
	if scroll.ChainID != 534352 || scroll.DisplayName != "Scroll" {
		t.Fatalf("scroll mismatch: %+v", scroll)
	}
}

func TestMergeRejectsIncompleteNetwork(t *testing.T) {
	r := Default()
	err := r.Merge([]byte("networks:\n  - key: mantle\n    rpc_url: https://rpc.mantle.xyz\n"))
	if err == nil {
		t.Fatalf("expected error for network without pool")
	}
}
