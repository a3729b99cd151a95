// Command issue-token mints an access token for an existing account without a
// password. Operators use it for service accounts and incident access.
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"graintrade.org/internal/auth"
	"graintrade.org/internal/config"
	"graintrade.org/internal/obs"
	"graintrade.org/internal/users"
)

func main() {
	log := obs.Logger()
	var (
		username = flag.String("user", "", "username to issue the token for")
		scopes   = flag.String("scopes", auth.ScopeMe, "space separated scopes")
		ttl      = flag.Duration("ttl", 15*time.Minute, "token lifetime")
	)
	flag.Parse()
	if strings.TrimSpace(*username) == "" {
		log.Fatal("usage: issue-token -user NAME [-scopes \"me items\"] [-ttl 15m]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PGHOST is required")
	}
	db, err := users.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer db.Close()

	codec, err := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.TokenTTL())
	if err != nil {
		log.WithError(err).Fatal("token codec")
	}
	svc := auth.NewService(users.NewPostgresRepository(db), auth.NewHasher(cfg.BcryptCost), codec)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	token, claims, err := svc.IssueFor(ctx, *username, auth.ParseScopeString(*scopes), *ttl)
	if err != nil {
		log.WithError(err).Fatal("issue token")
	}
	log.WithField("user", claims.Subject).WithField("expires_at", claims.ExpiresAt).Info("token issued")
	fmt.Println(token)
}
