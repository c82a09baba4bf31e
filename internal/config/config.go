// Package config loads pipeline settings from flags, environment, an optional
// YAML file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"bin-ranges/internal/domain"
)

// Defaults for the operator's server and bucket layout.
const (
	DefaultRegion          = "eu-west-1"
	DefaultDirectory       = "/Streamline/Universal"
	DefaultPrefix          = "WP_341BIN_"
	DefaultLatestKey       = "latest/worldpay-v3.csv"
	DefaultSFTPHost        = "mfg.worldpay.com"
	DefaultSFTPPort        = 22
	DefaultSFTPUsername    = "MFG_MTCPGOVD"
	DefaultLocalstackURL   = "http://localhost:4566"
	stagingBucketPrefix    = "bin-ranges-staged-"
	promotedBucketPrefix   = "bin-ranges-promoted-"
	defaultServerInterval  = 24 * time.Hour
	defaultPercentageValue = "5.0"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved pipeline configuration.
type Config struct {
	AWS         AWS
	Buckets     Buckets
	LatestKey   string
	Integrity   Integrity
	Acquisition Acquisition
	SFTP        SFTP
	Secrets     Secrets
	Storage     Storage
	Server      Server
	Logging     Logging
}

type AWS struct {
	AccountName string
	Region      string
	EndpointURL string // LocalStack or another S3/SSM compatible endpoint
}

type Buckets struct {
	Staging  string
	Promoted string
}

type Integrity struct {
	AcceptablePercentage decimal.Decimal
	ExtendedCardClasses  bool
	Workers              int
}

type Acquisition struct {
	RequiredVersion domain.Version
	Directory       string
	Prefix          string
}

type SFTP struct {
	Host        string
	Port        int
	Username    string
	KnownHosts  string
	DialTimeout time.Duration
}

type Secrets struct {
	PrivateKeyParameter string
	PassphraseParameter string
}

type Storage struct {
	PostgresDSN   string
	ClickhouseDSN string
	UseMemory     bool
}

type Server struct {
	Addr     string
	Interval time.Duration
}

type Logging struct {
	Level  string
	Format string
}

// envBindings maps keys to the environment names the deployment already uses.
var envBindings = map[string]string{
	"aws.account_name":                "AWS_ACCOUNT_NAME",
	"aws.region":                      "AWS_REGION",
	"aws.endpoint_url":                "AWS_ENDPOINT_URL",
	"aws.localstack":                  "LOCALSTACK_ENABLED",
	"integrity.acceptable_percentage": "ACCEPTABLE_FILESIZE_DIFFERENCE_PERCENTAGE",
	"acquisition.required_version":    "WORLDPAY_FILE_VERSION",
	"secrets.private_key_parameter":   "PRIVATE_KEY_PARAMETER_NAME",
	"secrets.passphrase_parameter":    "PASSPHRASE_PARAMETER_NAME",
	"storage.postgres_dsn":            "POSTGRES_DSN",
	"storage.clickhouse_dsn":          "CLICKHOUSE_DSN",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", DefaultRegion)
	v.SetDefault("aws.localstack", false)
	v.SetDefault("promotion.latest_key", DefaultLatestKey)
	v.SetDefault("integrity.acceptable_percentage", defaultPercentageValue)
	v.SetDefault("integrity.extended_card_classes", false)
	v.SetDefault("integrity.workers", 0)
	v.SetDefault("acquisition.required_version", domain.VersionV03.String())
	v.SetDefault("acquisition.directory", DefaultDirectory)
	v.SetDefault("acquisition.prefix", DefaultPrefix)
	v.SetDefault("sftp.host", DefaultSFTPHost)
	v.SetDefault("sftp.port", DefaultSFTPPort)
	v.SetDefault("sftp.username", DefaultSFTPUsername)
	v.SetDefault("sftp.dial_timeout", 10*time.Second)
	v.SetDefault("storage.use_memory", false)
	v.SetDefault("server.addr", ":9090")
	v.SetDefault("server.interval", defaultServerInterval)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// BindEnv enables BINRANGES_ prefixed variables for every key and binds the
// deployment's historical variable names.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix("BINRANGES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, "BINRANGES_"+envName(key), env); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// New returns a viper instance with defaults and environment bindings applied.
func New() (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ReadFile merges a YAML config file into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	version, err := domain.ParseRequiredVersion(v.GetString("acquisition.required_version"))
	if err != nil {
		return nil, fmt.Errorf("%w: acquisition.required_version: %v", ErrInvalid, err)
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(v.GetString("integrity.acceptable_percentage")))
	if err != nil {
		return nil, fmt.Errorf("%w: integrity.acceptable_percentage: %v", ErrInvalid, err)
	}

	cfg := &Config{
		AWS: AWS{
			AccountName: v.GetString("aws.account_name"),
			Region:      v.GetString("aws.region"),
			EndpointURL: v.GetString("aws.endpoint_url"),
		},
		Buckets: Buckets{
			Staging:  v.GetString("buckets.staging"),
			Promoted: v.GetString("buckets.promoted"),
		},
		LatestKey: v.GetString("promotion.latest_key"),
		Integrity: Integrity{
			AcceptablePercentage: pct,
			ExtendedCardClasses:  v.GetBool("integrity.extended_card_classes"),
			Workers:              v.GetInt("integrity.workers"),
		},
		Acquisition: Acquisition{
			RequiredVersion: version,
			Directory:       v.GetString("acquisition.directory"),
			Prefix:          v.GetString("acquisition.prefix"),
		},
		SFTP: SFTP{
			Host:        v.GetString("sftp.host"),
			Port:        v.GetInt("sftp.port"),
			Username:    v.GetString("sftp.username"),
			KnownHosts:  v.GetString("sftp.known_hosts"),
			DialTimeout: v.GetDuration("sftp.dial_timeout"),
		},
		Secrets: Secrets{
			PrivateKeyParameter: v.GetString("secrets.private_key_parameter"),
			PassphraseParameter: v.GetString("secrets.passphrase_parameter"),
		},
		Storage: Storage{
			PostgresDSN:   v.GetString("storage.postgres_dsn"),
			ClickhouseDSN: v.GetString("storage.clickhouse_dsn"),
			UseMemory:     v.GetBool("storage.use_memory"),
		},
		Server: Server{
			Addr:     v.GetString("server.addr"),
			Interval: v.GetDuration("server.interval"),
		},
		Logging: Logging{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if cfg.AWS.EndpointURL == "" && v.GetBool("aws.localstack") {
		cfg.AWS.EndpointURL = DefaultLocalstackURL
	}
	if cfg.Buckets.Staging == "" && cfg.AWS.AccountName != "" {
		cfg.Buckets.Staging = stagingBucketPrefix + cfg.AWS.AccountName
	}
	if cfg.Buckets.Promoted == "" && cfg.AWS.AccountName != "" {
		cfg.Buckets.Promoted = promotedBucketPrefix + cfg.AWS.AccountName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.Integrity.AcceptablePercentage.IsNegative() {
		errs = append(errs, errors.New("integrity.acceptable_percentage must not be negative"))
	}
	if c.Integrity.Workers < 0 {
		errs = append(errs, errors.New("integrity.workers must not be negative"))
	}
	if !c.Acquisition.RequiredVersion.IsKnown() {
		errs = append(errs, fmt.Errorf("acquisition.required_version %q is not supported", c.Acquisition.RequiredVersion))
	}
	if c.Buckets.Staging == "" {
		errs = append(errs, errors.New("buckets.staging is empty, set it or aws.account_name"))
	}
	if c.Buckets.Promoted == "" {
		errs = append(errs, errors.New("buckets.promoted is empty, set it or aws.account_name"))
	}
	if c.LatestKey == "" {
		errs = append(errs, errors.New("promotion.latest_key is empty"))
	}
	if c.Server.Interval <= 0 {
		errs = append(errs, errors.New("server.interval must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
