package config

import "github.com/kelseyhightower/envconfig"

// Config holds service configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`
	PublicURL string `envconfig:"PUBLIC_URL" required:"true"` // externally reachable base URL, used for webhook callbacks and OAuth redirects
	DBPath    string `envconfig:"DB_PATH" default:"./taskbridge.db"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error

	// Asana OAuth application credentials.
	AsanaClientID     string `envconfig:"ASANA_CLIENT_ID" required:"true"`
	AsanaClientSecret string `envconfig:"ASANA_CLIENT_SECRET" required:"true"`
	AsanaAuthURI      string `envconfig:"ASANA_AUTH_URI" default:"https://app.asana.com/-/oauth_authorize"`
	AsanaTokenURI     string `envconfig:"ASANA_TOKEN_URI" default:"https://app.asana.com/-/oauth_token"`
	AsanaAPIBase      string `envconfig:"ASANA_API_BASE" default:"https://app.asana.com/api/1.0"`

	// Chat platform (RingCentral-compatible) REST API.
	ChatServerURL string `envconfig:"CHAT_SERVER_URL" default:"https://platform.ringcentral.com"`

	// Shared secret for interactive message signature verification.
	// When empty, a secret is generated into the settings table on first run.
	SharedSecret string `envconfig:"SHARED_SECRET"`

	// How often the due-date reminder sweep wakes up.
	SweepInterval string `envconfig:"SWEEP_INTERVAL" default:"1h"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
