package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("clgmart version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Platform PlatformConfig `mapstructure:"platform"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PlatformKind selects how the OAuth redirect returns to the app
type PlatformKind string

const (
	PlatformWeb    PlatformKind = "web"
	PlatformNative PlatformKind = "native"
)

type PlatformConfig struct {
	Kind         PlatformKind `mapstructure:"kind"`
	Origin       string       `mapstructure:"origin"` // web only, empty when unknown
	Scheme       string       `mapstructure:"scheme"` // native deep-link scheme
	CallbackPath string       `mapstructure:"callback_path"`
	VerifiedPath string       `mapstructure:"verified_path"`
}

type SupabaseConfig struct {
	URL        string        `mapstructure:"url"`
	AnonKey    string        `mapstructure:"anon_key"`
	StorageKey string        `mapstructure:"storage_key"`
	VerifyJWT  bool          `mapstructure:"verify_jwt"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type OAuthConfig struct {
	Provider     string `mapstructure:"provider"`
	Scopes       string `mapstructure:"scopes"`
	LoopbackPort int    `mapstructure:"loopback_port"` // native CLI only, 0 disables
}

// StorageDriver names a session storage backend
type StorageDriver string

const (
	StorageMemory StorageDriver = "memory"
	StorageFile   StorageDriver = "file"
	StorageRedis  StorageDriver = "redis"
)

type StorageConfig struct {
	Driver    StorageDriver `mapstructure:"driver"`
	Path      string        `mapstructure:"path"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

var (
	ErrMissingSupabaseURL     = errors.New("supabase.url is required, please adjust the config or set CLGMART_SUPABASE_URL")
	ErrMissingSupabaseAnonKey = errors.New("supabase.anon_key is required, please adjust the config or set CLGMART_SUPABASE_ANON_KEY")
)

// InitFlags initializes command line flags (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("platform-kind", "", "Platform kind (web|native)")
	fs.String("web-origin", "", "Web origin used to build redirect URLs")
	fs.String("storage-driver", "", "Session storage driver (memory|file|redis)")
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("platform.kind", string(PlatformNative))
	v.SetDefault("platform.scheme", "clgmart")
	v.SetDefault("platform.callback_path", "/auth/callback")
	v.SetDefault("platform.verified_path", "/auth/verified")
	v.SetDefault("supabase.timeout", 30*time.Second)
	v.SetDefault("oauth.provider", "google")
	v.SetDefault("storage.driver", string(StorageFile))
	v.SetDefault("storage.path", filepath.Join(home, ".clgmart", "session.yaml"))
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.key_prefix", "clgmart:")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8081)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration from file, environment and the given flags.
// An empty configFile searches the default locations; a missing file there is not an error.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLGMART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".clgmart"))
		}
		v.AddConfigPath("/etc/clgmart")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Flags override file values when set
	if platform := v.GetString("platform-kind"); platform != "" {
		switch PlatformKind(platform) {
		case PlatformWeb, PlatformNative:
			config.Platform.Kind = PlatformKind(platform)
		default:
			return nil, fmt.Errorf("unsupported platform: %s", platform)
		}
	}
	if origin := v.GetString("web-origin"); origin != "" {
		config.Platform.Origin = origin
	}
	if driver := v.GetString("storage-driver"); driver != "" {
		config.Storage.Driver = StorageDriver(driver)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.Supabase.URL == "" {
		return ErrMissingSupabaseURL
	}
	if c.Supabase.AnonKey == "" {
		return ErrMissingSupabaseAnonKey
	}
	switch c.Platform.Kind {
	case PlatformWeb, PlatformNative:
	default:
		return fmt.Errorf("unsupported platform: %s", c.Platform.Kind)
	}
	switch c.Storage.Driver {
	case StorageMemory, StorageFile, StorageRedis:
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	return nil
}

// ServerAddr returns host:port for the web shell
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
