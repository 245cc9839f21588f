package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"healthScope/internal/aave"
	"healthScope/internal/registry"
)

// ErrChainMismatch is returned when an endpoint serves a different chain than the registry expects.
var ErrChainMismatch = errors.New("chain id mismatch")

// ContractCaller is the subset of Client used by the Provider.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	GetChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Dialer opens a caller for an RPC URL.
type Dialer func(ctx context.Context, rpcURL string) (ContractCaller, error)

// DialClient is the default Dialer.
func DialClient(ctx context.Context, rpcURL string) (ContractCaller, error) {
	return NewClient(ctx, rpcURL)
}

// ProviderConfig bounds outbound calls per network.
type ProviderConfig struct {
	// RatePerSecond of zero disables limiting.
	RatePerSecond float64
	Burst         int
}

type networkConn struct {
	caller  ContractCaller
	limiter *rate.Limiter
}

// Provider lazily dials one client per network and issues getUserAccountData calls.
type Provider struct {
	registry *registry.Registry
	dial     Dialer
	cfg      ProviderConfig
	logger   *zap.Logger

	mu    sync.Mutex
	conns map[string]*networkConn
}

func NewProvider(reg *registry.Registry, dial Dialer, cfg ProviderConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dial == nil {
		dial = DialClient
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Provider{
		registry: reg,
		dial:     dial,
		cfg:      cfg,
		logger:   logger,
		conns:    make(map[string]*networkConn),
	}
}

// CallAccountData runs eth_call getUserAccountData(user) against the network's pool at "latest".
func (p *Provider) CallAccountData(ctx context.Context, network string, user common.Address) ([]byte, error) {
	n, err := p.registry.Lookup(network)
	if err != nil {
		return nil, err
	}

	input, err := aave.PackAccountDataCall(user)
	if err != nil {
		return nil, fmt.Errorf("pack call: %w", err)
	}

	conn, err := p.conn(ctx, n)
	if err != nil {
		return nil, err
	}
	if conn.limiter != nil {
		if err := conn.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	pool := n.Pool
	return conn.caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: input}, nil)
}

func (p *Provider) conn(ctx context.Context, n registry.Network) (*networkConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.conns[n.Key]; ok {
		return c, nil
	}

	caller, err := p.dial(ctx, n.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc %s: %w", n.Key, err)
	}
	if err := checkChainID(ctx, caller, n); err != nil {
		caller.Close()
		return nil, err
	}

	c := &networkConn{caller: caller}
	if p.cfg.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(p.cfg.RatePerSecond), p.cfg.Burst)
	}
	p.conns[n.Key] = c

	p.logger.Debug("rpc connected",
		zap.String("network", n.Key),
		zap.String("rpc", n.RPCURL),
		zap.Uint64("chain_id", n.ChainID),
	)
	return c, nil
}

// checkChainID guards against an rpc override pointing at another chain.
// Networks without a configured chain id are not checked.
func checkChainID(ctx context.Context, caller ContractCaller, n registry.Network) error {
	if n.ChainID == 0 {
		return nil
	}
	id, err := caller.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id %s: %w", n.Key, err)
	}
	if !id.IsUint64() || id.Uint64() != n.ChainID {
		return fmt.Errorf("%w: rpc for %s serves chain %s, want %d", ErrChainMismatch, n.Key, id, n.ChainID)
	}
	return nil
}

// Close closes all dialed clients.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, c := range p.conns {
		c.caller.Close()
		delete(p.conns, key)
	}
}
