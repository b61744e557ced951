// Package config loads the run configuration shared by the commands.
package config

import "fmt"
import "math/rand"
import "os"
import "strconv"

import "github.com/joho/godotenv"
import "gopkg.in/yaml.v3"

import "github.com/neurlang/abstain/confidence"
import "github.com/neurlang/abstain/decode"
import "github.com/neurlang/abstain/loss"

type Config struct {
	Data struct {
		Dir       string `yaml:"dir"`
		BatchSize int    `yaml:"batch_size"`
		Normalize bool   `yaml:"normalize"`
		// Significance in (0, 100) decodes a shuffled sample of the
		// statistically sufficient size instead of the whole split.
		Significance byte `yaml:"significance"`
	} `yaml:"data"`

	Decode struct {
		Abstain    bool    `yaml:"abstain"`
		Confidence string  `yaml:"confidence"` // baseline or neg_abs
		Extractor  string  `yaml:"extractor"`  // optional, overrides confidence
		Threshold  float64 `yaml:"threshold"`
	} `yaml:"decode"`

	Checkpoints []string `yaml:"checkpoints"`

	Output struct {
		CurveFile string `yaml:"curve_file"`
		Records   string `yaml:"records"`
		DB        string `yaml:"db"`
	} `yaml:"output"`

	// Loss documents the objective the checkpoints were trained with; it is stored with each run.
	Loss struct {
		Name   string      `yaml:"name"`
		Params loss.Params `yaml:"params"`
	} `yaml:"loss"`

	Seed int64 `yaml:"seed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.Data.BatchSize = 64
	cfg.Data.Normalize = true
	cfg.Decode.Confidence = "baseline"
	cfg.Output.CurveFile = "precision_yield_curve.json"
	cfg.Loss.Name = "ce"
	return &cfg
}

// Load reads .env if present, then the YAML file at path (skipped when path
// is empty), then applies environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	if dir := os.Getenv("ABSTAIN_DATA_DIR"); dir != "" {
		cfg.Data.Dir = dir
	}
	if db := os.Getenv("ABSTAIN_DB"); db != "" {
		cfg.Output.DB = db
	}
	if curve := os.Getenv("ABSTAIN_CURVE_FILE"); curve != "" {
		cfg.Output.CurveFile = curve
	}
	if th := os.Getenv("ABSTAIN_THRESHOLD"); th != "" {
		v, err := strconv.ParseFloat(th, 64)
		if err != nil {
			return nil, fmt.Errorf("ABSTAIN_THRESHOLD: %w", err)
		}
		cfg.Decode.Threshold = v
	}

	if cfg.Data.BatchSize <= 0 {
		cfg.Data.BatchSize = 1
	}
	return cfg, nil
}

// Decoder builds the decoder described by the decode section.
func (c *Config) Decoder() (decode.Decoder, error) {
	kind, err := decode.ParseKind(c.Decode.Confidence)
	if err != nil {
		return decode.Decoder{}, err
	}
	d := decode.Decoder{Abstain: c.Decode.Abstain, Confidence: kind, Threshold: c.Decode.Threshold}
	if c.Decode.Extractor != "" {
		if d.Extractor, err = confidence.Lookup(c.Decode.Extractor, rand.New(rand.NewSource(c.Seed))); err != nil {
			return decode.Decoder{}, fmt.Errorf("extractor %q: %w", c.Decode.Extractor, err)
		}
	}
	return d, nil
}

// Objective builds the loss named in the loss section.
func (c *Config) Objective() (loss.Loss, error) {
	params := c.Loss.Params
	if params.Seed == 0 {
		params.Seed = c.Seed
	}
	l, err := loss.Lookup(c.Loss.Name, params)
	if err != nil {
		return nil, fmt.Errorf("loss: %w", err)
	}
	return l, nil
}
