package tendermint

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// LogFailedTx takes the transaction and the messages to create it and logs the
// appropriate data
func (c *Chain) LogFailedTx(res *sdk.TxResponse, err error, msgs []sdk.Msg) {
	logger := GetChainLogger().WithChain(c.ChainID())
	args := []any{"msg_types", msgTypes(msgs)}
	if res != nil {
		args = append(args, "tx_hash", res.TxHash, "code", res.Code, "raw_log", res.RawLog)
	}
	if err != nil {
		logger.Error("failed to send tx", err, args...)
	} else {
		logger.Info("tx rejected", args...)
	}
}

// LogSuccessTx takes the transaction and the messages to create it and logs the
// appropriate data
func (c *Chain) LogSuccessTx(res *sdk.TxResponse, msgs []sdk.Msg) {
	logger := GetChainLogger().WithChain(c.ChainID())
	logger.Info("successfully sent tx", "msg_types", msgTypes(msgs), "tx_hash", res.TxHash)
}

func msgTypes(msgs []sdk.Msg) []string {
	var types []string
	for _, msg := range msgs {
		types = append(types, sdk.MsgTypeURL(msg))
	}
	return types
}
