package postgresql

import (
	"fmt"
	"net/url"

	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/util"
)

type Config struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ToMap prefers an explicit DSN; otherwise one is built from the components when a host is set.
func (p *Config) ToMap() map[string]interface{} {
	dsn, hasDSN := util.TrimEmptyCheck(p.DSN)
	host, hasHost := util.TrimEmptyCheck(p.Host)
	if !hasDSN && hasHost {
		port := p.Port
		if port == 0 {
			port = constants.DefaultPostgresPort
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(util.TrimWithDefault(p.User, ""), p.Password),
			Host:     fmt.Sprintf("%s:%d", host, port),
			Path:     "/" + util.TrimWithDefault(p.DBName, ""),
			RawQuery: "sslmode=" + util.TrimWithDefault(p.SSLMode, constants.DefaultPostgresSSL),
		}
		dsn = u.String()
	}
	return map[string]interface{}{
		"dsn": dsn,
	}
}
