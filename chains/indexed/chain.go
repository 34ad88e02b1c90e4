package indexed

import (
	"context"
	"database/sql"
	"errors"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/codec"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/aozora-labs/tsubame-relayer/core"
	"github.com/aozora-labs/tsubame-relayer/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS packets (
	chain_id          TEXT   NOT NULL,
	sequence          BIGINT NOT NULL,
	src_port          TEXT   NOT NULL,
	src_channel       TEXT   NOT NULL,
	timeout_height    TEXT   NOT NULL,
	timeout_timestamp BIGINT NOT NULL,
	data              BYTEA,
	event_height      BIGINT NOT NULL,
	PRIMARY KEY (chain_id, src_port, src_channel, sequence)
);
CREATE TABLE IF NOT EXISTS acknowledgements (
	chain_id        TEXT   NOT NULL,
	sequence        BIGINT NOT NULL,
	dst_port        TEXT   NOT NULL,
	dst_channel     TEXT   NOT NULL,
	acknowledgement BYTEA,
	event_height    BIGINT NOT NULL,
	PRIMARY KEY (chain_id, dst_port, dst_channel, sequence)
);`

var _ core.Chain = (*Chain)(nil)

// Chain wraps another chain and mirrors the packet lifecycle observed in its
// tx results into a database. All chain operations are forwarded to the
// wrapped chain; the database is a write-through index, never the source of
// truth.
type Chain struct {
	core.Chain

	dsn string
	db  *sqlx.DB
}

func NewChain(inner core.Chain, dsn string) *Chain {
	return &Chain{Chain: inner, dsn: dsn}
}

// Inner returns the wrapped chain
func (c *Chain) Inner() core.Chain {
	return c.Chain
}

func (c *Chain) Init(homePath string, timeout time.Duration, codec codec.ProtoCodecMarshaler, debug bool) error {
	if err := c.Chain.Init(homePath, timeout, codec, debug); err != nil {
		return err
	}
	db, err := sqlx.Open("postgres", c.dsn)
	if err != nil {
		return errorsmod.Wrapf(core.ErrConfig, "failed to open database: %v", err)
	}
	c.db = db
	return nil
}

func (c *Chain) SetupForRelay(ctx context.Context) error {
	if err := c.Chain.SetupForRelay(ctx); err != nil {
		return err
	}
	if err := c.db.PingContext(ctx); err != nil {
		return errorsmod.Wrapf(core.ErrConnection, "failed to ping database: %v", err)
	}
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return errorsmod.Wrapf(core.ErrQuery, "failed to create schema: %v", err)
	}
	return nil
}

func (c *Chain) SendMsgsAndWaitCommit(ctx context.Context, msgs core.TrackedMsgs) ([]core.MsgResult, error) {
	results, err := c.Chain.SendMsgsAndWaitCommit(ctx, msgs)
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		c.indexResult(ctx, result)
	}
	return results, nil
}

func (c *Chain) GetMsgResult(ctx context.Context, id core.MsgID) (core.MsgResult, error) {
	result, err := c.Chain.GetMsgResult(ctx, id)
	if err != nil {
		return nil, err
	}
	c.indexResult(ctx, result)
	return result, nil
}

// indexResult mirrors the packet events of a successful msg into the
// database. Indexing failures are logged and swallowed: the index lags
// behind, the relay itself is unaffected.
func (c *Chain) indexResult(ctx context.Context, result core.MsgResult) {
	if ok, _ := result.Status(); !ok {
		return
	}
	logger := c.logger()
	height := result.BlockHeight().GetRevisionHeight()
	for _, ev := range result.Events() {
		switch e := ev.(type) {
		case *core.EventSendPacket:
			if err := c.indexSendPacket(ctx, e, height); err != nil {
				logger.ErrorContext(ctx, "failed to index send_packet", err, "sequence", e.Sequence)
			}
		case *core.EventWriteAcknowledgement:
			if err := c.indexAcknowledgement(ctx, e, height); err != nil {
				logger.ErrorContext(ctx, "failed to index write_acknowledgement", err, "sequence", e.Sequence)
			}
		}
	}
}

func (c *Chain) indexSendPacket(ctx context.Context, e *core.EventSendPacket, height uint64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO packets (chain_id, sequence, src_port, src_channel, timeout_height, timeout_timestamp, data, event_height)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (chain_id, src_port, src_channel, sequence) DO NOTHING`,
		c.ChainID(), e.Sequence, e.SrcPort, e.SrcChannel,
		e.TimeoutHeight.String(), e.TimeoutTimestamp.UnixNano(), e.Data, height,
	)
	return err
}

func (c *Chain) indexAcknowledgement(ctx context.Context, e *core.EventWriteAcknowledgement, height uint64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO acknowledgements (chain_id, sequence, dst_port, dst_channel, acknowledgement, event_height)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chain_id, dst_port, dst_channel, sequence) DO NOTHING`,
		c.ChainID(), e.Sequence, e.DstPort, e.DstChannel, e.Acknowledgement, height,
	)
	return err
}

// QueryIndexedPacketData returns the indexed packet data for a sequence, if
// present
func (c *Chain) QueryIndexedPacketData(ctx context.Context, srcPort, srcChannel string, sequence uint64) ([]byte, bool, error) {
	var data []byte
	err := c.db.GetContext(ctx, &data, `
		SELECT data FROM packets
		WHERE chain_id = $1 AND src_port = $2 AND src_channel = $3 AND sequence = $4`,
		c.ChainID(), srcPort, srcChannel, sequence,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errorsmod.Wrapf(core.ErrQuery, "failed to query indexed packet: %v", err)
	}
	return data, true, nil
}

func (c *Chain) logger() *log.RelayLogger {
	return log.GetLogger().
		WithChain(c.ChainID()).
		WithModule("indexed.chain")
}
