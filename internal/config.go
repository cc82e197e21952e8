package internal

import (
	"chat-relay/errors"
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,required=true" validate:"min=1,max=65535"`
	SocketPath           string        `env:"WS_PATH,default=/socket" validate:"required,startswith=/"`
	AllowedOrigin        string        `env:"ALLOWED_ORIGIN,default=http://localhost:3000" validate:"required"`
	PingTimeout          time.Duration `env:"PING_TIMEOUT,default=60s" validate:"gt=0"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=25s" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"min=1"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=1s" validate:"gt=0"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=65536" validate:"min=512"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	EnableDebugRoutes    bool          `env:"ENABLE_DEBUG_ROUTES,default=false"`
}

// DefaultEnvFile is read when ENV_FILE is not set.
const DefaultEnvFile = "config/config.env"

// LoadConfig reads an optional dotenv file, then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		// A missing file is fine, the environment alone may be enough.
		_ = godotenv.Load(envFile)
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if c.PingInterval >= c.PingTimeout {
		return fmt.Errorf("%w: PING_INTERVAL (%s) must be shorter than PING_TIMEOUT (%s)",
			errors.ErrInvalidConfig, c.PingInterval, c.PingTimeout)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
