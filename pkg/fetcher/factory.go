package fetcher

import (
	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/rs/zerolog"
)

// CursorSource provides the cursor to continue from on an end.
type CursorSource interface {
	Cursor(end connection.End) *string
}

// FactoryConfig holds the page sizes used for new fetchers.
type FactoryConfig struct {
	InitialPageSize    int
	PaginationPageSize int
	Runner             Runner
	Logger             zerolog.Logger
}

// Factory builds correctly parameterised fetchers for one connection.
type Factory[N, M any] struct {
	config  FactoryConfig
	source  connection.Fetcher[N]
	parse   connection.ParseFunc[N, M]
	cursors CursorSource
}

// NewFactory creates a factory reading continuation cursors from cursors.
func NewFactory[N, M any](cfg FactoryConfig, source connection.Fetcher[N], parse connection.ParseFunc[N, M], cursors CursorSource) *Factory[N, M] {
	return &Factory[N, M]{
		config:  cfg,
		source:  source,
		parse:   parse,
		cursors: cursors,
	}
}

// Fetcher returns a new idle fetcher for end. Initial fetchers use the
// initial page size and no cursor; next-page fetchers use the pagination page
// size and the cursor current at this call.
func (f *Factory[N, M]) Fetcher(end connection.End, initial bool) *PageFetcher[N, M] {
	cfg := Config{
		End:     end,
		Initial: initial,
		Runner:  f.config.Runner,
		Logger:  f.config.Logger,
	}
	if initial {
		cfg.PageSize = f.config.InitialPageSize
	} else {
		cfg.PageSize = f.config.PaginationPageSize
		cfg.Cursor = f.cursors.Cursor(end)
	}
	return New(cfg, f.source, f.parse)
}
