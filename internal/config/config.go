package config

import "github.com/kelseyhightower/envconfig"

// Config holds process configuration loaded from environment variables.
// Chat bindings and the admin set given here only seed the settings store
// on first run; after that the persisted settings win.
type Config struct {
	BotToken string  `envconfig:"BOT_TOKEN" required:"true"`
	DataDir  string  `envconfig:"DATA_DIR" default:"./data"`
	Timezone string  `envconfig:"GROUP_TZ" default:"Europe/London"`
	LogLevel string  `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string  `envconfig:"HTTP_ADDR" default:":8080"`
	PollChat int64   `envconfig:"POLL_CHAT_ID"`
	LogChat  int64   `envconfig:"LOG_CHAT_ID"`
	LOAChat  int64   `envconfig:"LOA_CHAT_ID"`
	AdminIDs []int64 `envconfig:"ADMIN_IDS"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
