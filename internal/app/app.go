// Package app wires together configuration, the Keepa client, the fee
// calculator and the local store into a single Deps struct that commands
// receive at runtime.
package app

import (
	"fmt"

	"github.com/derickschaefer/sellerscope/internal/config"
	"github.com/derickschaefer/sellerscope/internal/fees"
	"github.com/derickschaefer/sellerscope/internal/keepa"
	"github.com/derickschaefer/sellerscope/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is opened lazily by RequireStore so commands that never touch the
// database do not take its file lock.
type Deps struct {
	Config *config.Config
	Client *keepa.Client
	Fees   *fees.Calculator
	Store  *store.Store
}

// New builds a Deps from resolved config. It fails only when a configured
// fee table cannot be loaded.
func New(cfg *config.Config) (*Deps, error) {
	table, err := fees.LoadTable(cfg.FeeTable)
	if err != nil {
		return nil, fmt.Errorf("fee table: %w", err)
	}
	client := keepa.NewClient(
		cfg.APIKey,
		cfg.BaseURL,
		cfg.Domain,
		cfg.Timeout,
		cfg.Rate,
		cfg.Debug,
	)
	return &Deps{
		Config: cfg,
		Client: client,
		Fees:   fees.NewCalculator(table),
	}, nil
}

// RequireStore opens the bbolt store on first use.
func (d *Deps) RequireStore() (*store.Store, error) {
	if d.Store != nil {
		return d.Store, nil
	}
	if d.Config.DBPath == "" {
		return nil, fmt.Errorf("no database path configured (set %s or db_path in config.json)", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return nil, err
	}
	d.Store = s
	return s, nil
}

// Close releases the store if it was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
