// Package sql opens postgres connections from configuration.
package sql

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/soapboxsocial/fanout/pkg/conf"
)

// Open opens a postgres database described by the config.
func Open(config conf.PostgresConf) (*sql.DB, error) {
	ssl := config.SSL
	if ssl == "" {
		ssl = "disable"
	}

	return sql.Open("postgres", fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Database, ssl,
	))
}
