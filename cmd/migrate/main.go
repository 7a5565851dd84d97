// Command migrate applies the SQL files under migrations/ in name order,
// recording each one in schema_migrations so reruns only pick up new files.
//
//	migrate [dir]       apply pending migrations (default dir: migrations)
//	migrate --list      print the tables in the public schema
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const createLedger = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func main() {
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	dir, listOnly := "migrations", false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
			continue
		}
		dir = a
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}

	if listOnly {
		if err := listTables(db); err != nil {
			log.Fatal(err)
		}
		return
	}

	applied, skipped, err := migrate(db, dir)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("migrations: %d applied, %d already up to date", applied, skipped)
}

// migrate applies every pending file in dir and stops at the first failure.
func migrate(db *sql.DB, dir string) (applied, skipped int, err error) {
	if _, err := db.Exec(createLedger); err != nil {
		return 0, 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	done, err := appliedVersions(db)
	if err != nil {
		return 0, 0, fmt.Errorf("read schema_migrations: %w", err)
	}
	files, err := migrationFiles(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", dir, err)
	}

	for _, name := range files {
		if done[name] {
			skipped++
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return applied, skipped, err
		}
		if strings.TrimSpace(string(body)) == "" {
			continue
		}
		if err := applyOne(db, name, string(body)); err != nil {
			return applied, skipped, err
		}
		log.Printf("applied %s", name)
		applied++
	}
	return applied, skipped, nil
}

// applyOne runs a migration and its ledger row in one transaction.
func applyOne(db *sql.DB, name, body string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%s: begin: %w", name, err)
	}
	if _, err := tx.Exec(body); err != nil {
		tx.Rollback()
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
		tx.Rollback()
		return fmt.Errorf("%s: record: %w", name, err)
	}
	return tx.Commit()
}

// migrationFiles returns the .sql files in dir in apply order.
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func listTables(db *sql.DB) error {
	rows, err := db.Query(`SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename`)
	if err != nil {
		return err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		fmt.Println(" ", t)
		n++
	}
	fmt.Printf("%d tables\n", n)
	return rows.Err()
}
