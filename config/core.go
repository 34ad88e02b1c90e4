package config

import (
	"fmt"

	"github.com/aozora-labs/tsubame-relayer/core"
)

type CoreConfig struct {
	config *Config
}

var _ core.ConfigI = (*CoreConfig)(nil)

func (c *Config) InitCoreConfig() {
	coreConfig := &CoreConfig{
		config: c,
	}
	core.SetCoreConfig(coreConfig)
}

func (c CoreConfig) UpdatePathConfig(pathName string, chainID string, kv map[core.PathConfigKey]string) error {
	configPath, err := c.config.Paths.Get(pathName)
	if err != nil {
		return err
	}
	var pathEnd *core.PathEnd
	if chainID == configPath.Src.ChainID {
		pathEnd = configPath.Src
	} else if chainID == configPath.Dst.ChainID {
		pathEnd = configPath.Dst
	}
	if pathEnd == nil {
		return fmt.Errorf("chain %s does not belong to path %s", chainID, pathName)
	}
	for key, value := range kv {
		switch key {
		case core.PathConfigClientID:
			pathEnd.ClientID = value
		case core.PathConfigConnectionID:
			pathEnd.ConnectionID = value
		case core.PathConfigChannelID:
			pathEnd.ChannelID = value
		case core.PathConfigOrder:
			pathEnd.Order = value
		case core.PathConfigVersion:
			pathEnd.Version = value
		default:
			return fmt.Errorf("unknown path config key: %s", key)
		}
	}
	return c.config.Save()
}
