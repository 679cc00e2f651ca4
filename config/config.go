package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kube-credential/credential-service/pkg/storage"
)

const (
	ServiceName     = "credential-service"
	APIVersion      = "v1"
	ConfigExtension = ".toml"

	// ConfigPath is the env var that points at a TOML config file.
	ConfigPath = "CONFIG_PATH"

	// IssuanceServiceURLEnvVar overrides where the verification service
	// finds the issuance authority.
	IssuanceServiceURLEnvVar = "ISSUANCE_SERVICE_URL"

	DefaultIssuanceServiceURL = "http://localhost:3001"

	EnvironmentDev  = "dev"
	EnvironmentTest = "test"
	EnvironmentProd = "prod"
)

type ServiceConfig struct {
	conf.Version
	Server   ServerConfig   `toml:"server"`
	Services ServicesConfig `toml:"services"`
}

// ServerConfig represents configurable properties for the HTTP server
type ServerConfig struct {
	Environment        string        `toml:"env" conf:"default:dev"`
	APIHost            string        `toml:"api_host" conf:"default:0.0.0.0:3000"`
	JagerHost          string        `toml:"jager_host"`
	JagerEnabled       bool          `toml:"jager_enabled" conf:"default:false"`
	ReadTimeout        time.Duration `toml:"read_timeout" conf:"default:5s"`
	WriteTimeout       time.Duration `toml:"write_timeout" conf:"default:5s"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout" conf:"default:5s"`
	LogLocation        string        `toml:"log_location"`
	LogLevel           string        `toml:"log_level" conf:"default:info"`
	EnableAllowAllCORS bool          `toml:"enable_allow_all_cors" conf:"default:false"`
}

// ServicesConfig represents configurable properties for the components of
// the credential service
type ServicesConfig struct {
	// a single storage provider works for all services in a process
	StorageProvider string           `toml:"storage"`
	StorageOptions  []storage.Option `toml:"storage_option"`

	IssuanceConfig     IssuanceServiceConfig     `toml:"issuance,omitempty"`
	VerificationConfig VerificationServiceConfig `toml:"verification,omitempty"`
}

// BaseServiceConfig represents configurable properties for a specific
// component, wrapped and extended by each service config
type BaseServiceConfig struct {
	Name            string `toml:"name"`
	ServiceEndpoint string `toml:"service_endpoint"`
}

type IssuanceServiceConfig struct {
	*BaseServiceConfig
}

func (i *IssuanceServiceConfig) IsEmpty() bool {
	if i == nil {
		return true
	}
	return reflect.DeepEqual(i, &IssuanceServiceConfig{})
}

type VerificationServiceConfig struct {
	*BaseServiceConfig
	// IssuanceServiceURL locates the issuance authority the verification
	// service defers to. The ISSUANCE_SERVICE_URL env var takes precedence.
	IssuanceServiceURL string `toml:"issuance_service_url"`
	// LookupTimeout bounds the single outbound call per verification.
	LookupTimeout time.Duration `toml:"lookup_timeout"`
}

func (v *VerificationServiceConfig) IsEmpty() bool {
	if v == nil {
		return true
	}
	return reflect.DeepEqual(v, &VerificationServiceConfig{})
}

// LoadConfig attempts to load a TOML config file from the given path, and
// coerce it into our object model. Before loading, defaults are applied on
// certain properties, which are overwritten if specified in the TOML file.
func LoadConfig(path string) (*ServiceConfig, error) {
	// no path, load default config
	defaultConfig := false
	if path == "" {
		logrus.Info("no config path provided, loading default config...")
		defaultConfig = true
	} else if filepath.Ext(path) != ConfigExtension {
		return nil, fmt.Errorf("path<%s> did not match the expected TOML format", path)
	}

	var config ServiceConfig

	// parse and apply defaults
	if err := conf.Parse(os.Args[1:], ServiceName, &config); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "parsing config")
			}
			fmt.Println(usage)
			return nil, nil

		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil, nil
		}
		return nil, errors.Wrap(err, "parsing config")
	}

	if defaultConfig {
		config.Services = ServicesConfig{
			StorageProvider: string(storage.Bolt),
			IssuanceConfig: IssuanceServiceConfig{
				BaseServiceConfig: &BaseServiceConfig{Name: "issuance"},
			},
			VerificationConfig: VerificationServiceConfig{
				BaseServiceConfig:  &BaseServiceConfig{Name: "verification"},
				IssuanceServiceURL: DefaultIssuanceServiceURL,
				LookupTimeout:      5 * time.Second,
			},
		}
	} else {
		// load from TOML file
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return nil, errors.Wrapf(err, "could not load config: %s", path)
		}
	}

	applyEnvOverrides(&config)
	return &config, nil
}

func applyEnvOverrides(config *ServiceConfig) {
	if issuanceURL, present := os.LookupEnv(IssuanceServiceURLEnvVar); present {
		config.Services.VerificationConfig.IssuanceServiceURL = issuanceURL
	}
	if config.Services.VerificationConfig.IssuanceServiceURL == "" {
		config.Services.VerificationConfig.IssuanceServiceURL = DefaultIssuanceServiceURL
	}
	if config.Services.VerificationConfig.LookupTimeout == 0 {
		config.Services.VerificationConfig.LookupTimeout = 5 * time.Second
	}
}
