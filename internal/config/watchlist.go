package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"solana-whale-watch/internal/domain"
)

// watchlistFile is the on-disk YAML shape.
type watchlistFile struct {
	Tokens []watchlistEntry `yaml:"tokens"`
}

type watchlistEntry struct {
	Symbol         string `yaml:"symbol"`
	Mint           string `yaml:"mint"`
	MinUSD         string `yaml:"min_usd"`
	MaxUSD         string `yaml:"max_usd"`
	WindowSeconds  int    `yaml:"window_seconds"`
	MaxExposureUSD string `yaml:"max_exposure_usd"`
}

// LoadWatchlist reads the tracked-token thresholds from a YAML file.
// Amounts are YAML strings so they survive as exact decimals.
func LoadWatchlist(path string) ([]domain.TokenThresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return ParseWatchlist(data)
}

// ParseWatchlist parses and validates watchlist YAML.
func ParseWatchlist(data []byte) ([]domain.TokenThresholds, error) {
	var file watchlistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	if len(file.Tokens) == 0 {
		return nil, fmt.Errorf("watchlist names no tokens")
	}

	seen := make(map[string]bool, len(file.Tokens))
	out := make([]domain.TokenThresholds, 0, len(file.Tokens))
	for i, entry := range file.Tokens {
		t, err := entry.thresholds()
		if err != nil {
			return nil, fmt.Errorf("watchlist token %d (%s): %w", i, entry.Symbol, err)
		}
		if seen[t.Symbol] {
			return nil, fmt.Errorf("watchlist token %d: duplicate symbol %s", i, t.Symbol)
		}
		seen[t.Symbol] = true
		out = append(out, t)
	}
	return out, nil
}

func (e watchlistEntry) thresholds() (domain.TokenThresholds, error) {
	var t domain.TokenThresholds

	if e.Symbol == "" {
		return t, fmt.Errorf("symbol is required")
	}
	if e.Mint == "" {
		return t, fmt.Errorf("mint is required")
	}

	minUSD, err := decimal.NewFromString(e.MinUSD)
	if err != nil {
		return t, fmt.Errorf("min_usd: %w", err)
	}
	maxUSD, err := decimal.NewFromString(e.MaxUSD)
	if err != nil {
		return t, fmt.Errorf("max_usd: %w", err)
	}
	maxExposure, err := decimal.NewFromString(e.MaxExposureUSD)
	if err != nil {
		return t, fmt.Errorf("max_exposure_usd: %w", err)
	}

	if !minUSD.IsPositive() {
		return t, fmt.Errorf("min_usd must be positive")
	}
	if maxUSD.LessThanOrEqual(minUSD) {
		return t, fmt.Errorf("max_usd must exceed min_usd")
	}
	if !maxExposure.IsPositive() {
		return t, fmt.Errorf("max_exposure_usd must be positive")
	}
	if e.WindowSeconds <= 0 {
		return t, fmt.Errorf("window_seconds must be positive")
	}

	return domain.TokenThresholds{
		Symbol:         e.Symbol,
		Mint:           e.Mint,
		MinUSD:         minUSD,
		MaxUSD:         maxUSD,
		Window:         time.Duration(e.WindowSeconds) * time.Second,
		MaxExposureUSD: maxExposure,
	}, nil
}
