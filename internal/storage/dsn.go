package storage

import (
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/dreamware/pollshard/internal/shard"
)

// DSN builds the driver data source name for a shard.
func DSN(cfg shard.Config) (string, error) {
	switch cfg.DriverName() {
	case shard.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = cfg.Addr()
		mc.DBName = cfg.Database
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	case shard.DriverSQLite:
		return cfg.Database + "?_pragma=busy_timeout(5000)&_time_format=sqlite", nil
	}
	return "", errors.Errorf("unsupported shard driver %q", cfg.Driver)
}
