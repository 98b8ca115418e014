package main

import (
	"database/sql"

	"github.com/aprende/academia/storage/database"
)

type migrator interface {
	migrate(command string, args ...string) error
}

var migrateFunc = database.Migrate // mockable

type dbMigrator struct {
	db *sql.DB
}

func (m dbMigrator) migrate(command string, args ...string) error {
	return migrateFunc(m.db, command, args...)
}

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return cli.db.migrate(args[0], arguments...)
}
