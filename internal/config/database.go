// internal/config/database.go
package config

import (
	"fmt"
)

// DSN renders the libpq keyword/value connection string. Sessions run in UTC
// so that stored timestamps compare cleanly with expiry instants.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC application_name=greenproof",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}
