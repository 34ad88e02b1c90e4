package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aozora-labs/tsubame-relayer/core"
)

func TestSyncHeaders(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	sh, err := core.NewSyncHeaders(ctx, env.src, env.dst)
	require.NoError(t, err)

	srcLatest, err := env.src.LatestHeight(ctx)
	require.NoError(t, err)
	header := sh.GetLatestFinalizedHeader(env.srcChain.ChainID())
	require.NotNil(t, header)
	require.Equal(t, srcLatest.GetRevisionHeight(), header.GetHeight().GetRevisionHeight())

	qctx := sh.GetQueryContext(ctx, env.srcChain.ChainID())
	require.Equal(t, srcLatest.GetRevisionHeight(), qctx.Height().GetRevisionHeight())

	// the cache does not move until Updates is called
	env.srcChain.AdvanceBlocks(4)
	require.Equal(t,
		srcLatest.GetRevisionHeight(),
		sh.GetLatestFinalizedHeader(env.srcChain.ChainID()).GetHeight().GetRevisionHeight(),
	)

	require.NoError(t, sh.Updates(ctx, env.src, env.dst))
	newLatest, err := env.src.LatestHeight(ctx)
	require.NoError(t, err)
	require.Equal(t,
		newLatest.GetRevisionHeight(),
		sh.GetLatestFinalizedHeader(env.srcChain.ChainID()).GetHeight().GetRevisionHeight(),
	)
}

func TestSyncHeadersSetupBothHeadersForUpdate(t *testing.T) {
	env := newRelayEnv(t, "UNORDERED")
	ctx := context.Background()

	env.srcChain.AdvanceBlocks(2)
	sh, err := core.NewSyncHeaders(ctx, env.src, env.dst)
	require.NoError(t, err)

	// dst's client of src is behind the cached src header; src's client of dst
	// already points at dst's latest height
	srcHeaders, dstHeaders, err := sh.SetupBothHeadersForUpdate(ctx, env.src, env.dst)
	require.NoError(t, err)
	require.Len(t, srcHeaders, 1)
	require.Empty(t, dstHeaders)

	require.Equal(t,
		sh.GetLatestFinalizedHeader(env.srcChain.ChainID()).GetHeight(),
		srcHeaders[0].GetHeight(),
	)
}
