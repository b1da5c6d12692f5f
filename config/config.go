package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Debug            bool          `envconfig:"debug"`
	Env              string        `envconfig:"env" default:"development"`
	Port             int           `envconfig:"port" default:"3000"`
	PostgresHost     string        `envconfig:"postgres_host" default:"localhost"`
	PostgresUser     string        `envconfig:"postgres_user" default:"postgres"`
	PostgresDB       string        `envconfig:"postgres_db" default:"ireporter"`
	PostgresPort     int           `envconfig:"postgres_port" default:"5432"`
	PostgresPassword string        `envconfig:"postgres_password"`
	PostgresTimeZone string        `envconfig:"postgres_timezone" default:"UTC"`
	JWTSecret        string        `envconfig:"jwt_secret"`
	TokenTTL         time.Duration `envconfig:"token_ttl" default:"24h"`
	ResetTokenTTL    time.Duration `envconfig:"reset_token_ttl" default:"1h"`
	ResetPasswordURL string        `envconfig:"reset_password_url" default:"http://localhost:3002/reset-password"`
	RedisAddr        string        `envconfig:"redis_addr" default:"localhost:6379"`
	RedisPassword    string        `envconfig:"redis_password"`

	MediaStore   string `envconfig:"media_store" default:"disk"`
	UploadDir    string `envconfig:"upload_dir" default:"./uploads"`
	AWSRegion    string `envconfig:"aws_region"`
	AWSBucket    string `envconfig:"aws_bucket"`
	AWSAccessKey string `envconfig:"aws_access_key_id"`
	AWSSecretKey string `envconfig:"aws_secret_access_key"`

	MgDomain      string `envconfig:"mg_domain"`
	MailgunApiKey string `envconfig:"mg_api_key"`
	MgEmailFrom   string `envconfig:"email_from"`

	AccessControlAllowOrigin string        `envconfig:"access_control_allow_origin" default:"*"`
	AuthRateLimit            uint          `envconfig:"auth_rate_limit" default:"10"`
	AuthRateWindow           time.Duration `envconfig:"auth_rate_window" default:"1m"`
}

// Load reads the server configuration. Outside release mode a ./.env file is
// loaded first when present.
func Load() (*Config, error) {
	loadDotEnv()

	c := &Config{}
	if err := envconfig.Process("ireporter", c); err != nil {
		return nil, err
	}
	return c, nil
}

// AllowedOrigins splits the comma separated CORS origins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.AccessControlAllowOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ClientConfig configures the ireporter command line client.
type ClientConfig struct {
	APIURL      string `envconfig:"api_url" default:"http://localhost:3000/api"`
	SessionFile string `envconfig:"session_file"`
	Debug       bool   `envconfig:"debug"`
}

// LoadClient reads the client configuration. The session file defaults to
// the user config directory.
func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	c := &ClientConfig{}
	if err := envconfig.Process("ireporter", c); err != nil {
		return nil, err
	}
	if c.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		c.SessionFile = filepath.Join(dir, "ireporter", "session.json")
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	return c, nil
}

func loadDotEnv() {
	if os.Getenv("GIN_MODE") == "release" {
		return
	}
	if err := godotenv.Load("./.env"); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("couldn't load env vars")
	}
}
