package config

import (
	"encoding/json"

	"github.com/cosmos/cosmos-sdk/codec"
)

func MarshalJSON(config Config) ([]byte, error) {
	return json.Marshal(config)
}

// UnmarshalJSON unmarshals the config and initializes each chain config
// with the given codec.
func UnmarshalJSON(m codec.Codec, bz []byte, config *Config) error {
	if err := json.Unmarshal(bz, config); err != nil {
		return err
	}
	for i := range config.Chains {
		if err := config.Chains[i].Init(m); err != nil {
			return err
		}
	}
	return nil
}
