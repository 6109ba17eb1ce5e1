package shard

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Driver names understood by the storage layer.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config describes one shard. It is immutable once the router is built.
type Config struct {
	Driver   string `yaml:"driver" json:"-"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"-"`
	Password string `yaml:"password" json:"-"`
	Database string `yaml:"database" json:"database"`
}

// ID returns the shard identity, "host:port/database".
func (c Config) ID() string {
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
}

// Addr returns host:port suitable for dialing.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DriverName returns the configured driver, defaulting to MySQL.
func (c Config) DriverName() string {
	if c.Driver == "" {
		return DriverMySQL
	}
	return c.Driver
}

// Validate reports whether the config has enough information to connect.
func (c Config) Validate() error {
	switch c.DriverName() {
	case DriverMySQL:
		if c.Host == "" {
			return errors.New("shard host cannot be empty")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("shard port %d out of range", c.Port)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported shard driver %q", c.Driver)
	}
	if c.Database == "" {
		return errors.New("shard database cannot be empty")
	}
	return nil
}
