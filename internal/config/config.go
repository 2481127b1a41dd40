// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP  HTTPServer `yaml:"http"`
	Admin HTTPServer `yaml:"admin"`

	Database    Database    `yaml:"database"`
	ValKey      ValKey      `yaml:"valkey"`
	Broker      Broker      `yaml:"broker"`
	Housekeeper Housekeeper `yaml:"housekeeper"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	Prefix    string              `yaml:"prefix"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
}

// Broker configures callback payload handling.
type Broker struct {
	// Store selects the payload store backend: "valkey" or "memory".
	Store string `yaml:"store" default:"valkey"`
	// PayloadRetention is how long an unfetched payload is kept. Must not
	// be shorter than the clients' polling timeout.
	PayloadRetention time.Duration `yaml:"payloadRetention" default:"30m"`
	// EnforceTrustedDomains rejects callback payloads whose authority is
	// not on the trusted-domains list.
	EnforceTrustedDomains bool `yaml:"enforceTrustedDomains"`
}

type Housekeeper struct {
	Interval time.Duration `yaml:"interval" default:"5m"`
}
