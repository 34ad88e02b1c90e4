package tendermint

import (
	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	sdk "github.com/cosmos/cosmos-sdk/types"
	bip39 "github.com/cosmos/go-bip39"
)

const defaultCoinType = 118

// CreateMnemonic generates a new BIP39 mnemonic
func CreateMnemonic() (string, error) {
	entropySeed, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	mnemonic, err := bip39.NewMnemonic(entropySeed)
	if err != nil {
		return "", err
	}
	return mnemonic, nil
}

// AddKey generates a new mnemonic, stores the derived key under `name` and
// returns the address together with the mnemonic
func (c *Chain) AddKey(name string) (sdk.AccAddress, string, error) {
	mnemonic, err := CreateMnemonic()
	if err != nil {
		return nil, "", err
	}
	addr, err := c.RestoreKey(name, mnemonic)
	if err != nil {
		return nil, "", err
	}
	return addr, mnemonic, nil
}

// RestoreKey restores a key from a given mnemonic and stores it under `name`
func (c *Chain) RestoreKey(name, mnemonic string) (sdk.AccAddress, error) {
	defer c.UseSDKContext()()
	record, err := c.keybase.NewAccount(name, mnemonic, "", hd.CreateHDPath(defaultCoinType, 0, 0).String(), hd.Secp256k1)
	if err != nil {
		return nil, err
	}
	return record.GetAddress()
}

// DeleteKey removes the key stored under `name`
func (c *Chain) DeleteKey(name string) error {
	return c.keybase.Delete(name)
}

// ListKeys returns all keys in the chain's keybase
func (c *Chain) ListKeys() ([]*keyring.Record, error) {
	return c.keybase.List()
}
