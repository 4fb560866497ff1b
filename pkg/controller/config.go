package controller

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Config holds the controller configuration. It is fixed for the lifetime of
// a controller; loading a new initial page does not change it.
type Config struct {
	// InitialPageSize is the number of edges requested by an initial load.
	InitialPageSize int

	// PaginationPageSize is the number of edges requested by a next-page load.
	PaginationPageSize int

	// Logger overrides the component logger (default: logging.NewLogger("connection-controller")).
	Logger *zerolog.Logger
}

// DefaultConfig returns the default page sizes.
func DefaultConfig() Config {
	return Config{
		InitialPageSize:    20,
		PaginationPageSize: 20,
	}
}

// Validate checks that both page sizes are positive.
func (c Config) Validate() error {
	if c.InitialPageSize <= 0 {
		return fmt.Errorf("initial_page_size must be > 0 (got %d)", c.InitialPageSize)
	}
	if c.PaginationPageSize <= 0 {
		return fmt.Errorf("pagination_page_size must be > 0 (got %d)", c.PaginationPageSize)
	}
	return nil
}
