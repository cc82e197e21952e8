package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RELAY_URL targets a running relay, e.g. ws://localhost:5000/socket.
	// When empty the suite starts one in process.
	RelayURL    string `envconfig:"RELAY_URL"`
	RelayOrigin string `envconfig:"RELAY_ORIGIN" default:"http://localhost:3000"`
	// E2E_DEBUG_JSON dumps every received frame
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
