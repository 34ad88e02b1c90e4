package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cosmos/cosmos-sdk/codec"

	"github.com/aozora-labs/tsubame-relayer/core"
)

type Config struct {
	Global GlobalConfig             `yaml:"global" json:"global"`
	Chains []core.ChainProverConfig `yaml:"chains" json:"chains"`
	Paths  core.Paths               `yaml:"paths" json:"paths"`

	ConfigPath string `yaml:"-" json:"-"`

	// cache
	chains Chains `yaml:"-" json:"-"`
}

func DefaultConfig(configPath string) Config {
	return Config{
		Global:     newDefaultGlobalConfig(),
		Chains:     []core.ChainProverConfig{},
		Paths:      core.Paths{},
		ConfigPath: configPath,
	}
}

type GlobalConfig struct {
	Timeout        string        `yaml:"timeout" json:"timeout"`
	LightCacheSize int           `yaml:"light-cache-size" json:"light-cache-size"`
	LoggerConfig   LoggerConfig  `yaml:"logger" json:"logger"`
	MetricsConfig  MetricsConfig `yaml:"metrics" json:"metrics"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

type MetricsConfig struct {
	Exporter string `yaml:"exporter" json:"exporter"`
	Address  string `yaml:"address" json:"address"`
}

// newDefaultGlobalConfig returns a global config with defaults set
func newDefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Timeout:        "10s",
		LightCacheSize: 20,
		LoggerConfig: LoggerConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "stderr",
		},
		MetricsConfig: MetricsConfig{
			Exporter: "null",
		},
	}
}

func (c *Config) GetChain(chainID string) (*core.ProvableChain, error) {
	return c.chains.Get(chainID)
}

func (c *Config) GetChains() Chains {
	return c.chains
}

// AddChain adds an additional chain to the config
func (c *Config) AddChain(m codec.Codec, ccfg core.ChainProverConfig) error {
	chain, err := ccfg.Build()
	if err != nil {
		return err
	}
	if _, err := c.GetChain(chain.ChainID()); err == nil {
		return fmt.Errorf("chain with ID %s already exists in config", chain.ChainID())
	}
	c.Chains = append(c.Chains, ccfg)
	c.chains = append(c.chains, chain)
	return nil
}

// DeleteChain removes a chain from the config
func (c *Config) DeleteChain(chainID string) *Config {
	var set []core.ChainProverConfig
	for i, cc := range c.Chains {
		ccfg, err := cc.GetChainConfig()
		if err != nil {
			continue
		}
		chain, err := ccfg.Build()
		if err != nil || chain.ChainID() != chainID {
			set = append(set, c.Chains[i])
		}
	}
	var chains Chains
	for _, chain := range c.chains {
		if chain.ChainID() != chainID {
			chains = append(chains, chain)
		}
	}
	c.Chains = set
	c.chains = chains
	return c
}

// AddPath adds an additional path to the config
func (c *Config) AddPath(name string, path *core.Path) (err error) {
	return c.Paths.Add(name, path)
}

// DeletePath removes a path from the config
func (c *Config) DeletePath(name string) error {
	if _, err := c.Paths.Get(name); err != nil {
		return err
	}
	delete(c.Paths, name)
	return nil
}

// ChainsFromPath takes the path name and returns the properly configured chains
func (c *Config) ChainsFromPath(path string) (map[string]*core.ProvableChain, string, string, error) {
	pth, err := c.Paths.Get(path)
	if err != nil {
		return nil, "", "", err
	}

	src, dst := pth.Src.ChainID, pth.Dst.ChainID
	chains, err := c.chains.Gets(src, dst)
	if err != nil {
		return nil, "", "", err
	}

	if err = chains[src].SetRelayInfo(pth.Src, chains[dst], pth.Dst); err != nil {
		return nil, "", "", err
	}
	if err = chains[dst].SetRelayInfo(pth.Dst, chains[src], pth.Src); err != nil {
		return nil, "", "", err
	}

	return chains, src, dst, nil
}

// InitChains builds the ProvableChain instances from the chain configs on Config
func InitChains(ctx *Context, homePath string, debug bool) error {
	to, err := time.ParseDuration(ctx.Config.Global.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	for _, cc := range ctx.Config.Chains {
		chain, err := cc.Build()
		if err != nil {
			return fmt.Errorf("failed to build the chain: %w", err)
		}
		if err := chain.Init(homePath, to, ctx.Codec, debug); err != nil {
			return fmt.Errorf("failed to initialize the chain: %w", err)
		}
		ctx.Config.chains = append(ctx.Config.chains, chain)
	}

	return nil
}

// Save overwrites the config file with the current configuration
func (c *Config) Save() error {
	out, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath, out, 0600)
}
