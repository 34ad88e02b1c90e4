package core

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
)

// Paths represent connection paths between chains
type Paths map[string]*Path

// Get returns the configuration for a given path
func (p Paths) Get(name string) (*Path, error) {
	pth, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("path with name %s does not exist", name)
	}
	return pth, nil
}

// MustGet panics if path is not found
func (p Paths) MustGet(name string) *Path {
	pth, err := p.Get(name)
	if err != nil {
		panic(err)
	}
	return pth
}

// Add adds a path by its name
func (p Paths) Add(name string, path *Path) error {
	if err := path.Validate(); err != nil {
		return err
	}
	if _, found := p[name]; found {
		return fmt.Errorf("path with name %s already exists", name)
	}
	p[name] = path
	return nil
}

// PathsFromChains returns a path from the config between two chains
func (p Paths) PathsFromChains(src, dst string) (Paths, error) {
	out := Paths{}
	for name, path := range p {
		if (path.Dst.ChainID == src || path.Src.ChainID == src) && (path.Dst.ChainID == dst || path.Src.ChainID == dst) {
			out[name] = path
		}
	}
	if len(out) == 0 {
		return Paths{}, fmt.Errorf("failed to find path in config between chains %s and %s", src, dst)
	}
	return out, nil
}

// Path represents a pair of chains and the identifiers needed to
// relay over them
type Path struct {
	Src      *PathEnd     `yaml:"src" json:"src"`
	Dst      *PathEnd     `yaml:"dst" json:"dst"`
	Strategy *StrategyCfg `yaml:"strategy" json:"strategy"`
}

// Ordered returns true if the path is ordered and false if otherwise
func (p *Path) Ordered() bool {
	return p.Src.ChannelOrder() == chantypes.ORDERED
}

// Validate checks that a path is valid
func (p *Path) Validate() error {
	if err := p.Src.Validate(); err != nil {
		return err
	}
	if p.Src.Version == "" {
		return errorsmod.Wrap(ErrConfig, "source must specify a version")
	}
	if err := p.Dst.Validate(); err != nil {
		return err
	}
	if _, err := GetStrategy(*p.Strategy); err != nil {
		return err
	}
	if p.Src.ChannelOrder() != p.Dst.ChannelOrder() {
		return errorsmod.Wrap(ErrConfig, fmt.Sprintf("both sides must have same order ('ORDERED' or 'UNORDERED'), got src(%s) and dst(%s)",
			p.Src.ChannelOrder(), p.Dst.ChannelOrder()))
	}
	return nil
}

// End returns the proper end given a chainID
func (p *Path) End(chainID string) *PathEnd {
	if p.Dst.ChainID == chainID {
		return p.Dst
	}
	if p.Src.ChainID == chainID {
		return p.Src
	}
	return &PathEnd{}
}

func (p *Path) String() string {
	return fmt.Sprintf("[ ] %s ->\n %s", p.Src.String(), p.Dst.String())
}
