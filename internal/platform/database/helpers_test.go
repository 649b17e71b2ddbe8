package database

import "kycengine/internal/platform/config"

func configForSQLite(path string) config.DatabaseConfig {
	return config.DatabaseConfig{Driver: DriverSQLite, SQLitePath: path}
}
