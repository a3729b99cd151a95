package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"graintrade.org/internal/migrate"
	"graintrade.org/internal/obs"
	"graintrade.org/internal/users"
)

func main() {
	log := obs.Logger()
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or DATABASE_URL")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := users.OpenPostgres(*dsn)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer db.Close()

	mgr, err := migrate.NewManager(db)
	if err != nil {
		log.WithError(err).Fatal("migrate")
	}

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "status":
		var status []string
		status, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range status {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.WithError(err).Fatalf("migrate %s", flag.Arg(0))
	}
}
