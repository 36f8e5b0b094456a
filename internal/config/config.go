// Package config loads the hunter's tuning file: search bounds, worker
// counts, and the economic cost model.
package config

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Amr-9/SigHunter/internal/evaluator"
	"github.com/Amr-9/SigHunter/pkg/search"
)

// Search tunes the candidate enumeration and worker pool.
type Search struct {
	Alphabet string `yaml:"alphabet"`
	// MaxLen is the first exhaustive bound tried per order.
	MaxLen int `yaml:"max_len"`
	// DeepenTo is the escalation ceiling: an exhausted search retries
	// with the bound raised one character at a time up to this length.
	DeepenTo int `yaml:"deepen_to"`
	// Workers per search; zero means one per CPU core.
	Workers int `yaml:"workers"`
	// MaxCandidates caps each search attempt; zero means the full space.
	MaxCandidates uint64 `yaml:"max_candidates"`
	// Concurrent is how many orders are searched at once.
	Concurrent int `yaml:"concurrent_searches"`
}

// Cost carries the cost model as decimal wei strings, since the values
// routinely exceed 64 bits.
type Cost struct {
	WeiPerGigaHash string `yaml:"wei_per_gigahash"`
	SubmitCost     string `yaml:"submit_cost"`
}

// Config is the full tuning file.
type Config struct {
	Search Search `yaml:"search"`
	Cost   Cost   `yaml:"cost"`
}

// Default returns the tuning used when no file is given.
func Default() *Config {
	return &Config{
		Search: Search{
			Alphabet:   search.DefaultAlphabet,
			MaxLen:     6,
			DeepenTo:   7,
			Concurrent: 2,
		},
		Cost: Cost{
			WeiPerGigaHash: "2000000000000",   // ~2e-6 ETH per Ghash
			SubmitCost:     "300000000000000", // ~3e-4 ETH per fill
		},
	}
}

// Load reads a YAML tuning file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := search.NewAlphabet(c.Search.Alphabet); err != nil {
		return err
	}
	if c.Search.MaxLen <= 0 {
		return fmt.Errorf("search.max_len must be positive")
	}
	if c.Search.DeepenTo < c.Search.MaxLen {
		return fmt.Errorf("search.deepen_to must be at least search.max_len")
	}
	if c.Search.Concurrent <= 0 {
		return fmt.Errorf("search.concurrent_searches must be positive")
	}
	return nil
}

// AlphabetSet returns the parsed alphabet.
func (c *Config) AlphabetSet() search.Alphabet {
	return search.MustAlphabet(c.Search.Alphabet)
}

// CostModel parses the wei strings into the evaluator's model.
func (c *Config) CostModel() (evaluator.CostModel, error) {
	perGH, ok := new(big.Int).SetString(c.Cost.WeiPerGigaHash, 10)
	if !ok || perGH.Sign() < 0 {
		return evaluator.CostModel{}, fmt.Errorf("cost.wei_per_gigahash %q is not a nonnegative integer", c.Cost.WeiPerGigaHash)
	}
	submit, ok := new(big.Int).SetString(c.Cost.SubmitCost, 10)
	if !ok || submit.Sign() < 0 {
		return evaluator.CostModel{}, fmt.Errorf("cost.submit_cost %q is not a nonnegative integer", c.Cost.SubmitCost)
	}
	return evaluator.CostModel{WeiPerGigaHash: perGH, SubmitCost: submit}, nil
}
