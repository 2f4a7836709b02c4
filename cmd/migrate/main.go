// Command migrate runs schema operations for the backend.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"amber/internal/config"
	"amber/internal/database"

	"gorm.io/gorm/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(database.Dialector(cfg), logger.Info)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0))); cmd {
	case "up":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("automigrations applied")
	case "status":
		for _, m := range database.PersistentModels() {
			stmt := db.Model(m).Statement
			if err := stmt.Parse(m); err != nil {
				return fmt.Errorf("parse model: %w", err)
			}
			state := "missing"
			if db.Migrator().HasTable(m) {
				state = "present"
			}
			fmt.Printf("%-10s %s\n", stmt.Schema.Table, state)
		}
	default:
		return usage()
	}
	return nil
}
