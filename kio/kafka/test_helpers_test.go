package kafka

import (
	"io"
	"log/slog"

	"github.com/birdayz/tilestreams/kdag"
)

var (
	testFormat = kdag.Format{DataFormat: kdag.BFloat16, Tile: kdag.TileShape{Height: 2, Width: 4}}
	testLog    = slog.New(slog.NewTextHandler(io.Discard, nil))
)
