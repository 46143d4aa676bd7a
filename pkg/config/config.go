package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// Discord
	DiscordToken   string `envconfig:"DISCORD_TOKEN"`
	InputChannelID string `envconfig:"INPUT_CHANNEL_ID" default:"1454283599519154176"`
	PostChannelID  string `envconfig:"POST_CHANNEL_ID" default:"1454283796147998863"`
	PanelTrigger   string `envconfig:"PANEL_TRIGGER" default:"!panel"`
	// Reservations
	MaxReservations int `envconfig:"MAX_RESERVATIONS" default:"10"`
	// Store: file | sqlite | postgres | redis
	StoreDriver string `envconfig:"STORE_DRIVER" default:"file"`
	DataFile    string `envconfig:"DATA_FILE" default:"./reservations.json"`
	StoreDSN    string `envconfig:"STORE_DSN"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`
	RedisKey    string `envconfig:"REDIS_KEY" default:"reservations"`
	// Events (optional)
	RabbitURL           string `envconfig:"RABBIT_URL"`
	ReservationExchange string `envconfig:"RESERVATION_EXCHANGE" default:"reservation.exchange"`
	// Observability
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Env          string `envconfig:"ENV" default:"dev"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	// Network
	Port string `envconfig:"PORT" default:"8080"`
}

// HTTPAddr is the keep-alive listen address derived from PORT.
func (a App) HTTPAddr() string {
	if strings.Contains(a.Port, ":") {
		return a.Port
	}
	return ":" + a.Port
}

func (a App) Validate() error {
	if a.MaxReservations <= 0 {
		return fmt.Errorf("MAX_RESERVATIONS must be positive, got %d", a.MaxReservations)
	}
	switch a.StoreDriver {
	case "file":
		if a.DataFile == "" {
			return fmt.Errorf("DATA_FILE is required for store driver %q", a.StoreDriver)
		}
	case "sqlite", "postgres":
		if a.StoreDSN == "" {
			return fmt.Errorf("STORE_DSN is required for store driver %q", a.StoreDriver)
		}
	case "redis":
		if a.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for store driver %q", a.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", a.StoreDriver)
	}
	return nil
}

// Load reads .env (when present) and then the process environment.
func Load() (App, error) {
	_ = godotenv.Load(".env")
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	return c, c.Validate()
}
