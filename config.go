package glossy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FloodConfig is the [EXPANSION] ambient-stack configuration surface:
// everything cmd/floodctl needs to start a flood, loadable from a YAML
// file the way samoyed's deviceid.go loads its callsign table.
type FloodConfig struct {
	Initiator  bool   `yaml:"initiator"`
	Sync       bool   `yaml:"sync"`
	TxMax      byte   `yaml:"tx_max"`
	HeaderTag  byte   `yaml:"header_tag"`
	DataLen    byte   `yaml:"data_len"`
	ID         uint16 `yaml:"id"`
	TStopMs    int    `yaml:"t_stop_ms"`
	SyncWindow int    `yaml:"sync_window"`

	Radio RadioConfig `yaml:"radio"`
}

// RadioConfig records the radio's SPI port and pin names. It is parsed
// but not read by cmd/floodctl, which takes the SPI bus and pins for the
// Linux backend from its command-line flags.
type RadioConfig struct {
	SPIPort string `yaml:"spi_port"`
	CEPin   string `yaml:"ce_pin"`
	IRQPin  string `yaml:"irq_pin"`
}

// LoadConfig reads and validates a FloodConfig from a YAML file.
func LoadConfig(path string) (*FloodConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("glossy: reading config: %w", err)
	}
	var cfg FloodConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("glossy: parsing config: %w", err)
	}
	if cfg.TxMax == 0 {
		cfg.TxMax = 1
	}
	if cfg.HeaderTag > 3 {
		return nil, ErrBadHeaderTag
	}
	return &cfg, nil
}
