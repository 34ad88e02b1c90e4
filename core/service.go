package core

import (
	"context"
	"time"

	retry "github.com/avast/retry-go"
	"go.opentelemetry.io/otel/codes"

	"github.com/aozora-labs/tsubame-relayer/metrics"
)

// StartService starts a relay service
func StartService(
	ctx context.Context,
	st StrategyI,
	src, dst *ProvableChain,
	relayInterval time.Duration,
) error {
	sh, err := NewSyncHeaders(ctx, src, dst)
	if err != nil {
		return err
	}
	srv := NewRelayService(st, src, dst, sh, relayInterval)
	return srv.Start(ctx)
}

type RelayService struct {
	src      *ProvableChain
	dst      *ProvableChain
	st       StrategyI
	sh       SyncHeaders
	interval time.Duration
}

// NewRelayService returns a new service
func NewRelayService(
	st StrategyI,
	src, dst *ProvableChain,
	sh SyncHeaders,
	interval time.Duration,
) *RelayService {
	return &RelayService{
		src:      src,
		dst:      dst,
		st:       st,
		sh:       sh,
		interval: interval,
	}
}

// Start starts a relay service
func (srv *RelayService) Start(ctx context.Context) error {
	logger := GetChannelPairLogger(srv.src, srv.dst)
	for {
		if err := retry.Do(func() error {
			return srv.Serve(ctx)
		}, rtyAtt, rtyDel, rtyErr, retry.Context(ctx), retry.OnRetry(func(n uint, err error) {
			logger.InfoContext(ctx,
				"retrying to serve relays",
				"src", srv.src.ChainID(),
				"dst", srv.dst.ChainID(),
				"try", n+1,
				"try_limit", rtyAttNum,
				"error", err.Error(),
			)
		})); err != nil {
			return err
		}
		if err := wait(ctx, srv.interval); err != nil {
			return err
		}
	}
}

// Serve performs one relay round
func (srv *RelayService) Serve(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "RelayService.Serve", WithChannelPairAttributes(srv.src, srv.dst))
	defer span.End()
	logger := GetChannelPairLogger(srv.src, srv.dst)

	// First, update the latest headers for src and dst
	if err := srv.sh.Updates(ctx, srv.src, srv.dst); err != nil {
		logger.ErrorContext(ctx, "failed to update headers", err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AddRelayError(ctx, srv.src.ChainID(), srv.dst.ChainID(), "update_headers")
		return err
	}

	// get unrelayed packets
	pseqs, err := srv.st.UnrelayedPackets(ctx, srv.src, srv.dst, srv.sh, false)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get unrelayed packets", err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AddRelayError(ctx, srv.src.ChainID(), srv.dst.ChainID(), "unrelayed_packets")
		return err
	}

	// get unrelayed acks
	aseqs, err := srv.st.UnrelayedAcknowledgements(ctx, srv.src, srv.dst, srv.sh, false)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get unrelayed acknowledgements", err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AddRelayError(ctx, srv.src.ChainID(), srv.dst.ChainID(), "unrelayed_acknowledgements")
		return err
	}

	msgs := NewRelayMsgs()

	// update clients toward the chains that will verify proofs in this round;
	// a timed-out packet sends its proof back to the chain it was sent from
	needSrc := countLive(pseqs.Dst) > 0 || countTimedOut(pseqs.Src) > 0 || len(aseqs.Dst) > 0
	needDst := countLive(pseqs.Src) > 0 || countTimedOut(pseqs.Dst) > 0 || len(aseqs.Src) > 0
	if m, err := srv.st.UpdateClients(ctx, srv.src, srv.dst, needSrc, needDst, srv.sh); err != nil {
		logger.ErrorContext(ctx, "failed to update clients", err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AddRelayError(ctx, srv.src.ChainID(), srv.dst.ChainID(), "update_clients")
		return err
	} else {
		// screen the updates against the canonical history of the chain
		// each client tracks before anything is submitted
		if err := CheckUpdateClientMsgs(ctx, srv.dst, srv.src, m.Src); err != nil {
			logger.ErrorContext(ctx, "client update for src rejected", err)
			span.SetStatus(codes.Error, err.Error())
			metrics.AddRelayError(ctx, srv.src.ChainID(), srv.dst.ChainID(), "misbehaviour")
			return err
		}
		if err := CheckUpdateClientMsgs(ctx, srv.src, srv.dst, m.Dst); err != nil {
			logger.ErrorContext(ctx, "client update for dst rejected", err)
			span.SetStatus(codes.Error, err.Error())
			metrics.AddRelayError(ctx, srv.src.ChainID(), srv.dst.ChainID(), "misbehaviour")
			return err
		}
		msgs.Merge(m)
	}

	// relay packets if unrelayed seqs exist
	if m, err := srv.st.RelayPackets(ctx, srv.src, srv.dst, pseqs, srv.sh); err != nil {
		logger.ErrorContext(ctx, "failed to relay packets", err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AddRelayError(ctx, srv.src.ChainID(), srv.dst.ChainID(), "relay_packets")
		return err
	} else {
		msgs.Merge(m)
	}

	// relay acks if unrelayed seqs exist
	if m, err := srv.st.RelayAcknowledgements(ctx, srv.src, srv.dst, aseqs, srv.sh); err != nil {
		logger.ErrorContext(ctx, "failed to relay acknowledgements", err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AddRelayError(ctx, srv.src.ChainID(), srv.dst.ChainID(), "relay_acknowledgements")
		return err
	} else {
		msgs.Merge(m)
	}

	// send all msgs to src/dst chains
	srv.st.Send(ctx, srv.src, srv.dst, msgs)

	return nil
}

func countLive(ps PacketInfoList) int {
	var n int
	for _, p := range ps {
		if !p.TimedOut {
			n++
		}
	}
	return n
}

func countTimedOut(ps PacketInfoList) int {
	var n int
	for _, p := range ps {
		if p.TimedOut {
			n++
		}
	}
	return n
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
