package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the vaultd node configuration, loaded from TOML.
type Config struct {
	RPCAddress             string `toml:"RPCAddress"`
	DataDir                string `toml:"DataDir"`
	StorageBackend         string `toml:"StorageBackend"`
	GatewayConfigFile      string `toml:"GatewayConfigFile"`
	NetworkName            string `toml:"NetworkName"`
	VaultAddress           string `toml:"VaultAddress"`
	OperatorAddress        string `toml:"OperatorAddress"`
	RewardSourceAddress    string `toml:"RewardSourceAddress"`
	StrategyAddress        string `toml:"StrategyAddress"`
	CustodianAddress       string `toml:"CustodianAddress"`
	StrategyID             string `toml:"StrategyID"`
	RewardsDurationSeconds uint64 `toml:"RewardsDurationSeconds"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown field %s", path, undecoded[0])
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./vaultdata"
	}
	if strings.TrimSpace(c.StorageBackend) == "" {
		c.StorageBackend = "leveldb"
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = "vault-local"
	}
	if c.RewardsDurationSeconds == 0 {
		c.RewardsDurationSeconds = 30 * 24 * 60 * 60
	}
}

func createDefault(path string) (*Config, error) {
	// Module addresses get stable defaults; the operator, reward source and
	// strategy identifier must be filled in before privileged calls work.
	cfg := &Config{
		VaultAddress:     "0x5641554c54000000000000000000000000000001",
		StrategyAddress:  "0x5354524154000000000000000000000000000001",
		CustodianAddress: "0x435553544f000000000000000000000000000001",
	}
	cfg.applyDefaults()

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
