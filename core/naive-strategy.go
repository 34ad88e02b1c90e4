package core

import (
	"context"
	"fmt"

	retry "github.com/avast/retry-go"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"golang.org/x/sync/errgroup"

	"github.com/aozora-labs/tsubame-relayer/log"
	"github.com/aozora-labs/tsubame-relayer/metrics"
)

// NaiveStrategy is an implementation of Strategy. It relays every unrelayed
// packet it finds, in event order, with no prioritization.
type NaiveStrategy struct {
	Ordered      bool
	MaxTxSize    uint64 // maximum permitted size of the msgs in a bundled relay transaction
	MaxMsgLength uint64 // maximum amount of messages in a bundled relay transaction
	srcNoAck     bool
	dstNoAck     bool
}

var _ StrategyI = (*NaiveStrategy)(nil)

func NewNaiveStrategy(srcNoAck, dstNoAck bool) *NaiveStrategy {
	return &NaiveStrategy{
		srcNoAck: srcNoAck,
		dstNoAck: dstNoAck,
	}
}

// GetType implements Strategy
func (st NaiveStrategy) GetType() string {
	return "naive"
}

func (st NaiveStrategy) SetupRelay(ctx context.Context, src, dst *ProvableChain) error {
	logger := GetChannelPairLogger(src, dst)
	if err := src.SetupForRelay(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to setup for src", err)
		return err
	}
	if err := dst.SetupForRelay(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to setup for dst", err)
		return err
	}
	return nil
}

func (st NaiveStrategy) UnrelayedPackets(ctx context.Context, src, dst *ProvableChain, sh SyncHeaders, includeRelayedButUnfinalized bool) (*RelayPackets, error) {
	logger := GetChannelPairLogger(src, dst)
	var (
		eg         = new(errgroup.Group)
		srcPackets PacketInfoList
		dstPackets PacketInfoList
	)

	srcCtx := sh.GetQueryContext(ctx, src.ChainID())
	dstCtx := sh.GetQueryContext(ctx, dst.ChainID())

	eg.Go(func() error {
		return retry.Do(func() error {
			var err error
			srcPackets, err = src.QueryUnfinalizedRelayPackets(srcCtx, dst)
			return err
		}, rtyAtt, rtyDel, rtyErr, retry.OnRetry(func(n uint, err error) {
			logger.InfoContext(ctx,
				"query unfinalized packets",
				"src_revision_height", srcCtx.Height().GetRevisionHeight(),
				"try", fmt.Sprintf("%d/%d", n+1, rtyAttNum),
				"error", err.Error(),
			)
		}))
	})

	eg.Go(func() error {
		return retry.Do(func() error {
			var err error
			dstPackets, err = dst.QueryUnfinalizedRelayPackets(dstCtx, src)
			return err
		}, rtyAtt, rtyDel, rtyErr, retry.OnRetry(func(n uint, err error) {
			logger.InfoContext(ctx,
				"query unfinalized packets",
				"dst_revision_height", dstCtx.Height().GetRevisionHeight(),
				"try", fmt.Sprintf("%d/%d", n+1, rtyAttNum),
				"error", err.Error(),
			)
		}))
	})

	if err := eg.Wait(); err != nil {
		logger.ErrorContext(ctx, "error querying packet commitments", err)
		return nil, err
	}

	// If includeRelayedButUnfinalized is true, this function should return packets of which RecvPacket is not finalized yet.
	// In this case, filtering packets by QueryUnreceivedPackets is not needed because QueryUnfinalizedRelayPackets
	// has already returned packets that completely match this condition.
	if !includeRelayedButUnfinalized {
		srcLatest, err := src.LatestHeight(ctx)
		if err != nil {
			return nil, err
		}
		dstLatest, err := dst.LatestHeight(ctx)
		if err != nil {
			return nil, err
		}
		srcCtx := NewQueryContext(ctx, srcLatest)
		dstCtx := NewQueryContext(ctx, dstLatest)

		eg.Go(func() error {
			seqs, err := dst.QueryUnreceivedPackets(dstCtx, srcPackets.ExtractSequenceList())
			if err != nil {
				return err
			}
			srcPackets = srcPackets.Filter(seqs)
			return nil
		})

		eg.Go(func() error {
			seqs, err := src.QueryUnreceivedPackets(srcCtx, dstPackets.ExtractSequenceList())
			if err != nil {
				return err
			}
			dstPackets = dstPackets.Filter(seqs)
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	updateBacklogMetrics(ctx, src, srcPackets)
	updateBacklogMetrics(ctx, dst, dstPackets)

	return &RelayPackets{
		Src: srcPackets,
		Dst: dstPackets,
	}, nil
}

// updateBacklogMetrics publishes the size of one chain's unrelayed-packet
// backlog and the send timestamp of its oldest packet (0 when empty)
func updateBacklogMetrics(ctx context.Context, chain ChainInfo, packets PacketInfoList) {
	if metrics.BacklogSizeGauge == nil || metrics.BacklogOldestTimestampGauge == nil {
		return
	}
	attr := AttributeKeyChainID.String(chain.ChainID())
	metrics.BacklogSizeGauge.Set(int64(len(packets)), attr)

	var oldest int64
	if len(packets) > 0 {
		first := packets[0]
		for _, p := range packets[1:] {
			if p.EventHeight.LT(first.EventHeight) {
				first = p
			}
		}
		if ts, err := chain.Timestamp(ctx, first.EventHeight); err == nil {
			oldest = ts.UnixNano()
		}
	}
	metrics.BacklogOldestTimestampGauge.Set(oldest, attr)
}

func (st NaiveStrategy) UnrelayedAcknowledgements(ctx context.Context, src, dst *ProvableChain, sh SyncHeaders, includeRelayedButUnfinalized bool) (*RelayPackets, error) {
	logger := GetChannelPairLogger(src, dst)
	var (
		eg      = new(errgroup.Group)
		srcAcks PacketInfoList
		dstAcks PacketInfoList
	)

	srcCtx := sh.GetQueryContext(ctx, src.ChainID())
	dstCtx := sh.GetQueryContext(ctx, dst.ChainID())

	if !st.dstNoAck {
		eg.Go(func() error {
			return retry.Do(func() error {
				var err error
				srcAcks, err = src.QueryUnfinalizedRelayAcknowledgements(srcCtx, dst)
				return err
			}, rtyAtt, rtyDel, rtyErr, retry.OnRetry(func(n uint, err error) {
				logger.InfoContext(ctx,
					"query packet acknowledgements",
					"src_revision_height", srcCtx.Height().GetRevisionHeight(),
					"try", fmt.Sprintf("%d/%d", n+1, rtyAttNum),
					"error", err.Error(),
				)
			}))
		})
	}

	if !st.srcNoAck {
		eg.Go(func() error {
			return retry.Do(func() error {
				var err error
				dstAcks, err = dst.QueryUnfinalizedRelayAcknowledgements(dstCtx, src)
				return err
			}, rtyAtt, rtyDel, rtyErr, retry.OnRetry(func(n uint, err error) {
				logger.InfoContext(ctx,
					"query packet acknowledgements",
					"dst_revision_height", dstCtx.Height().GetRevisionHeight(),
					"try", fmt.Sprintf("%d/%d", n+1, rtyAttNum),
					"error", err.Error(),
				)
			}))
		})
	}

	if err := eg.Wait(); err != nil {
		logger.ErrorContext(ctx, "error querying packet acknowledgements", err)
		return nil, err
	}

	if !includeRelayedButUnfinalized {
		srcLatest, err := src.LatestHeight(ctx)
		if err != nil {
			return nil, err
		}
		dstLatest, err := dst.LatestHeight(ctx)
		if err != nil {
			return nil, err
		}
		srcCtx := NewQueryContext(ctx, srcLatest)
		dstCtx := NewQueryContext(ctx, dstLatest)

		if !st.dstNoAck {
			eg.Go(func() error {
				seqs, err := dst.QueryUnreceivedAcknowledgements(dstCtx, srcAcks.ExtractSequenceList())
				if err != nil {
					return err
				}
				srcAcks = srcAcks.Filter(seqs)
				return nil
			})
		}

		if !st.srcNoAck {
			eg.Go(func() error {
				seqs, err := src.QueryUnreceivedAcknowledgements(srcCtx, dstAcks.ExtractSequenceList())
				if err != nil {
					return err
				}
				dstAcks = dstAcks.Filter(seqs)
				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	return &RelayPackets{
		Src: srcAcks,
		Dst: dstAcks,
	}, nil
}

func (st NaiveStrategy) UpdateClients(ctx context.Context, src, dst *ProvableChain, needSrc, needDst bool, sh SyncHeaders) (*RelayMsgs, error) {
	logger := GetChannelPairLogger(src, dst)
	msgs := NewRelayMsgs()

	if needDst {
		hs, err := sh.SetupHeadersForUpdate(ctx, src, dst)
		if err != nil {
			logger.ErrorContext(ctx, "error setting up headers for update", err)
			return nil, err
		}
		if len(hs) > 0 {
			dstAddr, err := dst.GetAddress()
			if err != nil {
				return nil, err
			}
			msgs.Dst = dst.Path().UpdateClients(hs, dstAddr)
		}
	}

	if needSrc {
		hs, err := sh.SetupHeadersForUpdate(ctx, dst, src)
		if err != nil {
			logger.ErrorContext(ctx, "error setting up headers for update", err)
			return nil, err
		}
		if len(hs) > 0 {
			srcAddr, err := src.GetAddress()
			if err != nil {
				return nil, err
			}
			msgs.Src = src.Path().UpdateClients(hs, srcAddr)
		}
	}

	return msgs, nil
}

func (st NaiveStrategy) RelayPackets(ctx context.Context, src, dst *ProvableChain, rp *RelayPackets, sh SyncHeaders) (*RelayMsgs, error) {
	logger := GetChannelPairLogger(src, dst)
	msgs := &RelayMsgs{
		MaxTxSize:    st.MaxTxSize,
		MaxMsgLength: st.MaxMsgLength,
		TrackingID:   "relay-packets",
	}

	srcCtx := sh.GetQueryContext(ctx, src.ChainID())
	dstCtx := sh.GetQueryContext(ctx, dst.ChainID())
	srcAddress, err := src.GetAddress()
	if err != nil {
		logger.ErrorContext(ctx, "error getting address", err)
		return nil, err
	}
	dstAddress, err := dst.GetAddress()
	if err != nil {
		logger.ErrorContext(ctx, "error getting address", err)
		return nil, err
	}

	// live packets produce a MsgRecvPacket on the counterparty; timed-out
	// packets produce a MsgTimeout back on the sending chain, proven on the
	// counterparty.
	for _, p := range rp.Src {
		if p.TimedOut {
			msg, err := buildTimeout(dstCtx, dst, p, srcAddress)
			if err != nil {
				return nil, err
			}
			msgs.Src = append(msgs.Src, msg)
		} else {
			msg, err := BuildRecvPacketMsg(srcCtx, src, p, dstAddress)
			if err != nil {
				return nil, err
			}
			msgs.Dst = append(msgs.Dst, msg)
		}
	}
	for _, p := range rp.Dst {
		if p.TimedOut {
			msg, err := buildTimeout(srcCtx, src, p, dstAddress)
			if err != nil {
				return nil, err
			}
			msgs.Dst = append(msgs.Dst, msg)
		} else {
			msg, err := BuildRecvPacketMsg(dstCtx, dst, p, srcAddress)
			if err != nil {
				return nil, err
			}
			msgs.Src = append(msgs.Src, msg)
		}
	}

	if len(msgs.Src) == 0 && len(msgs.Dst) == 0 {
		logger.InfoContext(ctx, "no packets to relay")
	}

	return msgs, nil
}

func buildTimeout(ctx QueryContext, counterparty *ProvableChain, p *PacketInfo, signer sdk.AccAddress) (sdk.Msg, error) {
	if p.ChannelClosed {
		return BuildTimeoutOnCloseMsg(ctx, counterparty, p, signer)
	}
	return BuildTimeoutMsg(ctx, counterparty, p, signer)
}

func (st NaiveStrategy) RelayAcknowledgements(ctx context.Context, src, dst *ProvableChain, rp *RelayPackets, sh SyncHeaders) (*RelayMsgs, error) {
	logger := GetChannelPairLogger(src, dst)
	msgs := &RelayMsgs{
		MaxTxSize:    st.MaxTxSize,
		MaxMsgLength: st.MaxMsgLength,
		TrackingID:   "relay-acknowledgements",
	}

	srcCtx := sh.GetQueryContext(ctx, src.ChainID())
	dstCtx := sh.GetQueryContext(ctx, dst.ChainID())
	srcAddress, err := src.GetAddress()
	if err != nil {
		logger.ErrorContext(ctx, "error getting address", err)
		return nil, err
	}
	dstAddress, err := dst.GetAddress()
	if err != nil {
		logger.ErrorContext(ctx, "error getting address", err)
		return nil, err
	}

	// rp.Src holds acks written on src for packets sent by dst, and vice versa
	if !st.dstNoAck {
		for _, p := range rp.Src {
			msg, err := BuildAcknowledgementMsg(srcCtx, src, p, dstAddress)
			if err != nil {
				return nil, err
			}
			msgs.Dst = append(msgs.Dst, msg)
		}
	}
	if !st.srcNoAck {
		for _, p := range rp.Dst {
			msg, err := BuildAcknowledgementMsg(dstCtx, dst, p, srcAddress)
			if err != nil {
				return nil, err
			}
			msgs.Src = append(msgs.Src, msg)
		}
	}

	if len(msgs.Src) == 0 && len(msgs.Dst) == 0 {
		logger.InfoContext(ctx, "no acknowledgements to relay")
	}

	return msgs, nil
}

func (st NaiveStrategy) Send(ctx context.Context, src, dst *ProvableChain, msgs *RelayMsgs) {
	if !msgs.Ready() {
		return
	}
	msgs.Send(ctx, src, dst)
	if msgs.Success() {
		if num := len(msgs.Dst); num > 0 {
			logPacketsRelayed(ctx, dst, num)
			metrics.AddRelayedPacket(ctx, dst.ChainID(), msgs.TrackingID)
		}
		if num := len(msgs.Src); num > 0 {
			logPacketsRelayed(ctx, src, num)
			metrics.AddRelayedPacket(ctx, src.ChainID(), msgs.TrackingID)
		}
	} else {
		metrics.AddRelayError(ctx, src.ChainID(), dst.ChainID(), msgs.TrackingID)
	}
}

func logPacketsRelayed(ctx context.Context, targetChain *ProvableChain, num int) {
	log.GetLogger().InfoContext(ctx,
		fmt.Sprintf("★ Relayed %d messages", num),
		"chain_id", targetChain.ChainID(),
		"channel_id", targetChain.Path().ChannelID,
		"port_id", targetChain.Path().PortID,
	)
}

func GetChannelPairLogger(src, dst Chain) *log.RelayLogger {
	return log.GetLogger().
		WithChannelPair(
			src.ChainID(), src.Path().PortID, src.Path().ChannelID,
			dst.ChainID(), dst.Path().PortID, dst.Path().ChannelID,
		).
		WithModule("core.channel")
}
