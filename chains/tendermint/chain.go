package tendermint

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/avast/retry-go"

	rpcclient "github.com/cometbft/cometbft/rpc/client"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	libclient "github.com/cometbft/cometbft/rpc/jsonrpc/client"
	sdkCtx "github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"
	"github.com/cosmos/cosmos-sdk/codec"
	keys "github.com/cosmos/cosmos-sdk/crypto/keyring"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	authTypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/aozora-labs/tsubame-relayer/core"
	"github.com/aozora-labs/tsubame-relayer/log"
)

var (
	rtyAttNum = uint(5)
	rtyAtt    = retry.Attempts(rtyAttNum)
	rtyDel    = retry.Delay(time.Millisecond * 400)
	rtyErr    = retry.LastErrorOnly(true)
)

// Chain represents the necessary data for connecting to and indentifying a chain and its counterparites
type Chain struct {
	config ChainConfig

	homePath string
	pathEnd  *core.PathEnd
	cpEnd    *core.PathEnd
	keybase  keys.Keyring
	client   rpcclient.Client

	codec            codec.ProtoCodecMarshaler
	msgEventListener core.MsgEventListener

	timeout time.Duration
	debug   bool
}

var _ core.Chain = (*Chain)(nil)

func (c *Chain) ChainID() string {
	return c.config.ChainId
}

func (c *Chain) Config() ChainConfig {
	return c.config
}

func (c *Chain) ClientID() string {
	return c.pathEnd.ClientID
}

func (c *Chain) Codec() codec.ProtoCodecMarshaler {
	return c.codec
}

// GetAddress returns the sdk.AccAddress associated with the configred key
func (c *Chain) GetAddress() (sdk.AccAddress, error) {
	defer c.UseSDKContext()()

	// Signing key for c chain
	srcAddr, err := c.keybase.Key(c.config.Key)
	if err != nil {
		return nil, err
	}

	return srcAddr.GetAddress()
}

// SetRelayInfo sets source's path and counterparty's info to the chain
func (c *Chain) SetRelayInfo(p *core.PathEnd, _ *core.ProvableChain, counterpartyPath *core.PathEnd) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("path on chain %s failed to set: %w", c.ChainID(), err)
	}
	c.pathEnd = p
	c.cpEnd = counterpartyPath
	return nil
}

func (c *Chain) Path() *core.PathEnd {
	return c.pathEnd
}

func (c *Chain) Init(homePath string, timeout time.Duration, codec codec.ProtoCodecMarshaler, debug bool) error {
	keybase, err := keys.New(c.config.ChainId, c.config.KeyringBackend, keysDir(homePath, c.config.ChainId), nil, codec)
	if err != nil {
		return err
	}

	client, err := newRPCClient(c.config.RpcAddr, timeout)
	if err != nil {
		return err
	}

	if _, err := sdk.ParseDecCoins(c.config.GasPrices); err != nil {
		return errorsmod.Wrapf(core.ErrConfig, "failed to parse gas prices (%s) for chain %s", c.config.GasPrices, c.ChainID())
	}

	c.keybase = keybase
	c.client = client
	c.homePath = homePath
	c.codec = codec
	c.timeout = timeout
	c.debug = debug
	return nil
}

func (c *Chain) SetupForRelay(ctx context.Context) error {
	return nil
}

// LatestHeight queries the chain for the latest height and returns it
func (c *Chain) LatestHeight(ctx context.Context) (ibcexported.Height, error) {
	res, err := c.client.Status(ctx)
	if err != nil {
		return nil, errorsmod.Wrap(core.ErrConnection, err.Error())
	} else if res.SyncInfo.CatchingUp {
		return nil, errorsmod.Wrapf(core.ErrConnection, "node at %s running chain %s not caught up", c.config.RpcAddr, c.ChainID())
	}
	version := clienttypes.ParseChainID(c.config.TmChainId)
	return clienttypes.NewHeight(version, uint64(res.SyncInfo.LatestBlockHeight)), nil
}

func (c *Chain) Timestamp(ctx context.Context, height ibcexported.Height) (time.Time, error) {
	ht := int64(height.GetRevisionHeight())
	if header, err := c.client.Header(ctx, &ht); err != nil {
		return time.Time{}, errorsmod.Wrap(core.ErrQuery, err.Error())
	} else {
		return header.Header.Time, nil
	}
}

func (c *Chain) AverageBlockTime() time.Duration {
	return time.Duration(c.config.AverageBlockTimeMsec) * time.Millisecond
}

// RegisterMsgEventListener registers a given EventListener to the chain
func (c *Chain) RegisterMsgEventListener(listener core.MsgEventListener) {
	c.msgEventListener = listener
}

// SendMsgs broadcasts the msgs in a single tx and returns as soon as the
// chain's mempool accepts it. Execution results are obtained via GetMsgResult.
func (c *Chain) SendMsgs(ctx context.Context, msgs core.TrackedMsgs) ([]core.MsgID, error) {
	logger := GetChainLogger().WithChain(c.ChainID())

	res, err := c.broadcastMsgs(ctx, msgs.Msgs)
	if err != nil {
		return nil, err
	}

	if c.msgEventListener != nil {
		if err := c.msgEventListener.OnSentMsg(ctx, msgs.Msgs); err != nil {
			logger.ErrorContext(ctx, "failed to call OnSentMsg", err)
		}
	}

	var msgIDs []core.MsgID
	for msgIndex := range msgs.Msgs {
		msgIDs = append(msgIDs, &MsgID{
			TxHash:     res.TxHash,
			MsgIndex:   uint32(msgIndex),
			TrackingID: msgs.TrackingID,
		})
	}
	return msgIDs, nil
}

// SendMsgsAndWaitCommit broadcasts the msgs and blocks until the tx is
// included in a block, returning the per-message execution results.
func (c *Chain) SendMsgsAndWaitCommit(ctx context.Context, msgs core.TrackedMsgs) ([]core.MsgResult, error) {
	msgIDs, err := c.SendMsgs(ctx, msgs)
	if err != nil {
		return nil, err
	}
	var results []core.MsgResult
	for _, id := range msgIDs {
		result, err := c.GetMsgResult(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (c *Chain) GetMsgResult(ctx context.Context, id core.MsgID) (core.MsgResult, error) {
	msgID, ok := id.(*MsgID)
	if !ok {
		return nil, fmt.Errorf("unexpected message id type: %T", id)
	}

	// find tx
	resTx, err := c.waitForCommit(ctx, msgID.TxHash)
	if err != nil {
		return nil, errorsmod.Wrapf(core.ErrQuery, "failed to query tx: %v", err)
	}

	// check height of the delivered tx
	version := clienttypes.ParseChainID(c.config.TmChainId)
	height := clienttypes.NewHeight(version, uint64(resTx.Height))

	// check if the tx execution succeeded
	if resTx.TxResult.IsErr() {
		err := errorsmod.ABCIError(resTx.TxResult.Codespace, resTx.TxResult.Code, resTx.TxResult.Log)
		return &MsgResult{
			height:          height,
			txStatus:        false,
			txFailureReason: err.Error(),
		}, nil
	}

	// parse the tx events into core.MsgEventLog's
	events, err := parseMsgEventLogs(c.codec, resTx.TxResult.Events, msgID.MsgIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse msg event log: %v", err)
	}

	return &MsgResult{
		height:   height,
		txStatus: true,
		events:   events,
	}, nil
}

// broadcastMsgs builds, signs and broadcasts a tx carrying msgs. It fails if
// the chain rejects the tx at CheckTx time.
func (c *Chain) broadcastMsgs(ctx context.Context, msgs []sdk.Msg) (*sdk.TxResponse, error) {
	// Instantiate the client context
	cliCtx := c.CLIContext(0)

	// Query account details
	txf, err := prepareFactory(cliCtx, c.TxFactory(0))
	if err != nil {
		return nil, err
	}

	// If users pass gas adjustment, then calculate gas
	_, adjusted, err := CalculateGas(cliCtx.QueryWithData, txf, msgs...)
	if err != nil {
		return nil, err
	}

	// Set the gas amount on the transaction factory
	txf = txf.WithGas(adjusted)

	// Build the transaction builder
	txb, err := txf.BuildUnsignedTx(msgs...)
	if err != nil {
		return nil, err
	}

	// Attach the signature to the transaction
	if err := tx.Sign(ctx, txf, c.config.Key, txb, false); err != nil {
		return nil, err
	}

	// Generate the transaction bytes
	txBytes, err := cliCtx.TxConfig.TxEncoder()(txb.GetTx())
	if err != nil {
		return nil, err
	}

	// Broadcast those bytes
	res, err := cliCtx.BroadcastTx(txBytes)
	if err != nil {
		return nil, errorsmod.Wrap(core.ErrConnection, err.Error())
	}

	if res.Code != 0 {
		c.LogFailedTx(res, nil, msgs)
		return nil, errorsmod.Wrapf(core.ErrTxFailure, "CheckTx failed: %v",
			errorsmod.ABCIError(res.Codespace, res.Code, res.RawLog))
	}

	c.LogSuccessTx(res, msgs)
	return res, nil
}

func (c *Chain) waitForCommit(ctx context.Context, txHash string) (*coretypes.ResultTx, error) {
	var resTx *coretypes.ResultTx

	retryInterval := c.AverageBlockTime()
	maxRetry := uint(c.config.MaxRetryForCommit)

	if err := retry.Do(func() error {
		var err error
		var recoverable bool
		resTx, recoverable, err = c.rawQueryTx(ctx, txHash)
		if err != nil {
			if recoverable {
				return err
			} else {
				return retry.Unrecoverable(err)
			}
		}
		// In a CometBFT chain, when the latest height of the chain is N+1,
		// proofs of states updated up to height N are available.
		// In order to make the proof of the state updated by a tx available just after `SendMsgs`,
		// `waitForCommit` must wait until the latest height is greater than the tx height.
		if height, err := c.LatestHeight(ctx); err != nil {
			return fmt.Errorf("failed to obtain latest height: %v", err)
		} else if height.GetRevisionHeight() <= uint64(resTx.Height) {
			return fmt.Errorf("latest_height(%v) is less than or equal to tx_height(%v) yet", height, resTx.Height)
		}
		return nil
	}, retry.Attempts(maxRetry), retry.Delay(retryInterval), rtyErr, retry.Context(ctx)); err != nil {
		return resTx, fmt.Errorf("failed to make sure that tx is committed: %v", err)
	}

	return resTx, nil
}

// rawQueryTx returns a tx of which hash equals to `hexTxHash`.
func (c *Chain) rawQueryTx(ctx context.Context, hexTxHash string) (*coretypes.ResultTx, bool, error) {
	txHash, err := hex.DecodeString(hexTxHash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode the hex string of tx hash: %v", err)
	}

	resTx, err := c.client.Tx(ctx, txHash, false)
	if err != nil {
		recoverable := !strings.Contains(err.Error(), "transaction indexing is disabled")
		return nil, recoverable, fmt.Errorf("failed to retrieve tx: %v", err)
	}

	return resTx, false, nil
}

func prepareFactory(clientCtx sdkCtx.Context, txf tx.Factory) (tx.Factory, error) {
	from := clientCtx.GetFromAddress()

	if err := txf.AccountRetriever().EnsureExists(clientCtx, from); err != nil {
		return txf, err
	}

	initNum, initSeq := txf.AccountNumber(), txf.Sequence()
	if initNum == 0 || initSeq == 0 {
		num, seq, err := txf.AccountRetriever().GetAccountNumberSequence(clientCtx, from)
		if err != nil {
			return txf, err
		}

		if initNum == 0 {
			txf = txf.WithAccountNumber(num)
		}

		if initSeq == 0 {
			txf = txf.WithSequence(seq)
		}
	}

	return txf, nil
}

// protoTxProvider is a type which can provide a proto transaction. It is a
// workaround to get access to the wrapper TxBuilder's method GetProtoTx().
type protoTxProvider interface {
	GetProtoTx() *txtypes.Tx
}

// BuildSimTx creates an unsigned tx with an empty single signature and returns
// the encoded transaction or an error if the unsigned transaction cannot be
// built.
func BuildSimTx(txf tx.Factory, msgs ...sdk.Msg) ([]byte, error) {
	txb, err := txf.BuildUnsignedTx(msgs...)
	if err != nil {
		return nil, err
	}

	// Create an empty signature literal as the ante handler will populate with a
	// sentinel pubkey.
	sig := signing.SignatureV2{
		PubKey: &secp256k1.PubKey{},
		Data: &signing.SingleSignatureData{
			SignMode: txf.SignMode(),
		},
		Sequence: txf.Sequence(),
	}
	if err := txb.SetSignatures(sig); err != nil {
		return nil, err
	}

	protoProvider, ok := txb.(protoTxProvider)
	if !ok {
		return nil, fmt.Errorf("cannot simulate amino tx")
	}
	simReq := txtypes.SimulateRequest{Tx: protoProvider.GetProtoTx()}

	return simReq.Marshal()
}

// CalculateGas simulates the execution of a transaction and returns the
// simulation response obtained by the query and the adjusted gas amount.
func CalculateGas(
	queryFunc func(string, []byte) ([]byte, int64, error), txf tx.Factory, msgs ...sdk.Msg,
) (txtypes.SimulateResponse, uint64, error) {
	txBytes, err := BuildSimTx(txf, msgs...)
	if err != nil {
		return txtypes.SimulateResponse{}, 0, err
	}

	bz, _, err := queryFunc("/cosmos.tx.v1beta1.Service/Simulate", txBytes)
	if err != nil {
		return txtypes.SimulateResponse{}, 0, err
	}

	var simRes txtypes.SimulateResponse

	if err := simRes.Unmarshal(bz); err != nil {
		return txtypes.SimulateResponse{}, 0, err
	}

	return simRes, uint64(txf.GasAdjustment() * float64(simRes.GasInfo.GasUsed)), nil
}

// ------------------------------- //

func (c *Chain) Key() string {
	return c.config.Key
}

// KeyExists returns true if there is a specified key in chain's keybase
func (c *Chain) KeyExists(name string) bool {
	k, err := c.keybase.Key(name)
	if err != nil {
		return false
	}

	return k.Name == name
}

// MustGetAddress used for brevity
func (c *Chain) MustGetAddress() sdk.AccAddress {
	srcAddr, err := c.GetAddress()
	if err != nil {
		panic(err)
	}
	return srcAddr
}

var sdkContextMutex sync.Mutex

// UseSDKContext uses a custom Bech32 account prefix and returns a restore func
// CONTRACT: When using this function, caller must ensure that lock contention
// doesn't cause program to hang.
func (c *Chain) UseSDKContext() func() {
	// Ensure we're the only one using the global context,
	// lock context to begin function
	sdkContextMutex.Lock()

	// Mutate the sdkConf
	sdkConf := sdk.GetConfig()
	sdkConf.SetBech32PrefixForAccount(c.config.AccountPrefix, c.config.AccountPrefix+"pub")
	sdkConf.SetBech32PrefixForValidator(c.config.AccountPrefix+"valoper", c.config.AccountPrefix+"valoperpub")
	sdkConf.SetBech32PrefixForConsensusNode(c.config.AccountPrefix+"valcons", c.config.AccountPrefix+"valconspub")

	// Return the unlock function, caller must lock and ensure that lock is released
	// before any other function needs to use c.UseSDKContext
	return sdkContextMutex.Unlock
}

// CLIContext returns an instance of client.Context derived from Chain
func (c *Chain) CLIContext(height int64) sdkCtx.Context {
	return sdkCtx.Context{}.
		WithChainID(c.config.ChainId).
		WithCodec(c.codec).
		WithInterfaceRegistry(c.codec.InterfaceRegistry()).
		WithTxConfig(authtx.NewTxConfig(c.codec, authtx.DefaultSignModes)).
		WithInput(os.Stdin).
		WithNodeURI(c.config.RpcAddr).
		WithClient(c.client).
		WithAccountRetriever(authTypes.AccountRetriever{}).
		WithBroadcastMode(flags.BroadcastSync).
		WithKeyring(c.keybase).
		WithOutputFormat("json").
		WithFrom(c.config.Key).
		WithFromName(c.config.Key).
		WithFromAddress(c.MustGetAddress()).
		WithSkipConfirmation(true).
		WithHeight(height)
}

// TxFactory returns an instance of tx.Factory derived from
func (c *Chain) TxFactory(height int64) tx.Factory {
	ctx := c.CLIContext(height)
	return tx.Factory{}.
		WithAccountRetriever(ctx.AccountRetriever).
		WithChainID(c.config.ChainId).
		WithTxConfig(ctx.TxConfig).
		WithGasAdjustment(c.config.GasAdjustment).
		WithGasPrices(c.config.GasPrices).
		WithKeybase(c.keybase).
		WithSignMode(signing.SignMode_SIGN_MODE_DIRECT)
}

// KeysDir returns the path to the keys for this chain
func keysDir(home, chainID string) string {
	return path.Join(home, "keys", chainID)
}

// rpcRemoteClient exposes the RPC client as a remote client for the light
// block provider
func (c *Chain) rpcRemoteClient() rpcclient.RemoteClient {
	return c.client.(rpcclient.RemoteClient)
}

func newRPCClient(addr string, timeout time.Duration) (*rpchttp.HTTP, error) {
	httpClient, err := libclient.DefaultHTTPClient(addr)
	if err != nil {
		return nil, err
	}

	httpClient.Timeout = timeout
	rpcClient, err := rpchttp.NewWithClient(addr, "/websocket", httpClient)
	if err != nil {
		return nil, err
	}

	return rpcClient, nil
}

func GetChainLogger() *log.RelayLogger {
	return log.GetLogger().
		WithModule("tendermint.chain")
}
