package main

import (
	"log"

	indexed "github.com/aozora-labs/tsubame-relayer/chains/indexed/module"
	mock "github.com/aozora-labs/tsubame-relayer/chains/mock/module"
	tendermint "github.com/aozora-labs/tsubame-relayer/chains/tendermint/module"
	"github.com/aozora-labs/tsubame-relayer/cmd"
)

func main() {
	if err := cmd.Execute(
		tendermint.Module{},
		mock.Module{},
		indexed.Module{},
	); err != nil {
		log.Fatal(err)
	}
}
