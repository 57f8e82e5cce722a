package database

import (
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	dsn := Options{User: "park", Password: "s3cr3t", Host: "db", Port: "3306", Name: "userpark"}.DSN()

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if cfg.User != "park" || cfg.Passwd != "s3cr3t" || cfg.Addr != "db:3306" || cfg.DBName != "userpark" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.ParseTime || cfg.Loc.String() != "UTC" {
		t.Fatalf("parseTime=%v loc=%v", cfg.ParseTime, cfg.Loc)
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Fatalf("charset missing from %q", dsn)
	}
}

func TestSchemaStatements(t *testing.T) {
	for _, table := range []string{"accounts", "operator_accounts", "slots", "reservations"} {
		found := false
		for _, stmt := range schema {
			if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") {
				found = true
			}
		}
		if !found {
			t.Errorf("no DDL for %s", table)
		}
	}
}
