package core

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aozora-labs/tsubame-relayer/metrics"
)

// SyncHeaders caches the latest finalized header of both chains of a relay
// pair and serves query contexts pinned to those headers.
type SyncHeaders interface {
	// Updates refreshes the cached headers of both chains
	Updates(ctx context.Context, src, dst ChainInfoLightClient) error

	// GetLatestFinalizedHeader returns the cached latest finalized header of the chain
	GetLatestFinalizedHeader(chainID string) Header

	// GetQueryContext builds a QueryContext pinned to the cached finalized height of the chain
	GetQueryContext(ctx context.Context, chainID string) QueryContext

	// SetupHeadersForUpdate returns the headers that update dst's client of src
	// up to src's cached finalized header
	SetupHeadersForUpdate(ctx context.Context, src, dst *ProvableChain) ([]Header, error)

	// SetupBothHeadersForUpdate is SetupHeadersForUpdate for both directions at once
	SetupBothHeadersForUpdate(ctx context.Context, src, dst *ProvableChain) (srcHeaders []Header, dstHeaders []Header, err error)
}

// ChainInfoLightClient is ChainInfo + LightClient
type ChainInfoLightClient interface {
	ChainInfo
	LightClient
}

type syncHeaders struct {
	mu                     sync.RWMutex
	latestFinalizedHeaders map[string]Header // chainID => Header
}

var _ SyncHeaders = (*syncHeaders)(nil)

// NewSyncHeaders returns a new SyncHeaders instance
func NewSyncHeaders(ctx context.Context, src, dst ChainInfoLightClient) (SyncHeaders, error) {
	sh := &syncHeaders{
		latestFinalizedHeaders: map[string]Header{src.ChainID(): nil, dst.ChainID(): nil},
	}
	if err := sh.Updates(ctx, src, dst); err != nil {
		return nil, err
	}
	return sh, nil
}

// Updates refreshes the cached headers of both chains
func (sh *syncHeaders) Updates(ctx context.Context, src, dst ChainInfoLightClient) error {
	var (
		eg                   = new(errgroup.Group)
		srcHeader, dstHeader Header
	)
	eg.Go(func() error {
		var err error
		srcHeader, err = src.GetLatestFinalizedHeader(ctx)
		return err
	})
	eg.Go(func() error {
		var err error
		dstHeader, err = dst.GetLatestFinalizedHeader(ctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	metrics.ProcessedBlockHeightGauge.Set(int64(srcHeader.GetHeight().GetRevisionHeight()), AttributeKeyChainID.String(src.ChainID()))
	metrics.ProcessedBlockHeightGauge.Set(int64(dstHeader.GetHeight().GetRevisionHeight()), AttributeKeyChainID.String(dst.ChainID()))

	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.latestFinalizedHeaders[src.ChainID()] = srcHeader
	sh.latestFinalizedHeaders[dst.ChainID()] = dstHeader
	return nil
}

// GetLatestFinalizedHeader returns the cached latest finalized header of the chain
func (sh *syncHeaders) GetLatestFinalizedHeader(chainID string) Header {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.latestFinalizedHeaders[chainID]
}

// GetQueryContext builds a QueryContext pinned to the cached finalized height of the chain
func (sh *syncHeaders) GetQueryContext(ctx context.Context, chainID string) QueryContext {
	return NewQueryContext(ctx, sh.GetLatestFinalizedHeader(chainID).GetHeight())
}

// SetupHeadersForUpdate returns the headers that update dst's client of src
func (sh *syncHeaders) SetupHeadersForUpdate(ctx context.Context, src, dst *ProvableChain) ([]Header, error) {
	header := sh.GetLatestFinalizedHeader(src.ChainID())
	if header == nil {
		return nil, fmt.Errorf("no cached finalized header for chain %s", src.ChainID())
	}
	return src.SetupHeadersForUpdate(ctx, dst, header)
}

// SetupBothHeadersForUpdate is SetupHeadersForUpdate for both directions at once
func (sh *syncHeaders) SetupBothHeadersForUpdate(ctx context.Context, src, dst *ProvableChain) ([]Header, []Header, error) {
	srcHs, err := sh.SetupHeadersForUpdate(ctx, src, dst)
	if err != nil {
		return nil, nil, err
	}
	dstHs, err := sh.SetupHeadersForUpdate(ctx, dst, src)
	if err != nil {
		return nil, nil, err
	}
	return srcHs, dstHs, nil
}
