package chain

import (
	"context"
	"math/big"
	"testing"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

type stubAdapter struct {
	id ID
}

func (s *stubAdapter) ID() ID        { return s.id }
func (s *stubAdapter) Decimals() int { return 18 }
func (s *stubAdapter) SendValue(context.Context, Credentials, string, *big.Int) (*Receipt, error) {
	return nil, nil
}
func (s *stubAdapter) GetBalance(context.Context, string) (*big.Int, error) { return nil, nil }
func (s *stubAdapter) GetHistory(context.Context, HistorySelector) (History, error) {
	return nil, nil
}
func (s *stubAdapter) CreateWallet([]string) (*Keypair, error)  { return nil, nil }
func (s *stubAdapter) RecoverWallet([]string) (*Keypair, error) { return nil, nil }

func TestRegistry_ResolveConstructsOnce(t *testing.T) {
	r := NewRegistry()

	calls := 0
	r.Register(EVM, Endpoint{RPCURL: "http://localhost"}, func(Endpoint) (Adapter, error) {
		calls++
		return &stubAdapter{id: EVM}, nil
	})

	first, err := r.Resolve(EVM)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := r.Resolve(EVM)
	if err != nil {
		t.Fatalf("Resolve() second call error = %v", err)
	}

	if calls != 1 {
		t.Errorf("creator called %d times, want 1", calls)
	}
	if first != second {
		t.Error("Resolve() returned different instances for the same chain")
	}
}

func TestRegistry_ResolveUnknownChain(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve(Solana)
	if !dialerr.Is(err, dialerr.ErrUnsupportedChain) {
		t.Errorf("Resolve() error = %v, want ErrUnsupportedChain", err)
	}
}

func TestRegistry_Supported(t *testing.T) {
	r := NewRegistry()
	r.Register(Solana, Endpoint{}, func(Endpoint) (Adapter, error) { return &stubAdapter{id: Solana}, nil })
	r.Register(EVM, Endpoint{}, func(Endpoint) (Adapter, error) { return &stubAdapter{id: EVM}, nil })

	got := r.Supported()
	// Ordered by the canonical chain list, not registration order.
	if len(got) != 2 || got[0] != EVM || got[1] != Solana {
		t.Errorf("Supported() = %v, want [evm solana]", got)
	}

	if !r.IsSupported(EVM) || r.IsSupported(Polygon) {
		t.Error("IsSupported() mismatch")
	}
}

func TestChainID(t *testing.T) {
	tests := []struct {
		id      ID
		valid   bool
		prefix  string
		display string
	}{
		{EVM, true, "ETN", "Electroneum"},
		{Binance, true, "BNB", "Binance"},
		{Polygon, true, "MAT", "Polygon"},
		{Solana, true, "SOL", "Solana"},
		{ID("dogecoin"), false, "", "dogecoin"},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			if got := tt.id.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
			if got := tt.id.WalletPrefix(); got != tt.prefix {
				t.Errorf("WalletPrefix() = %q, want %q", got, tt.prefix)
			}
			if got := tt.id.DisplayName(); got != tt.display {
				t.Errorf("DisplayName() = %q, want %q", got, tt.display)
			}
		})
	}
}
