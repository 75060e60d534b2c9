// Command tool bundles operator helpers:
//
//	tool token  -user <id> [-ttl 1h]      mint an access token for local testing
//	tool hash   -password <pw>            print a bcrypt hash for seeding
//	tool brute  [-pattern brute:*] [-del] inspect or clear login limiter keys
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/silverback/internal/infrastructure/security"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "token":
		err = runToken(os.Args[2:], os.Stdout)
	case "hash":
		err = runHash(os.Args[2:], os.Stdout)
	case "brute":
		err = runBrute(os.Args[2:], os.Stdout)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: tool <token|hash|brute> [flags]")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	var (
		secret   = fs.String("secret", os.Getenv("JWT_SECRET"), "HMAC secret (default $JWT_SECRET)")
		issuer   = fs.String("issuer", envOr("JWT_ISSUER", "silverback"), "token issuer")
		audience = fs.String("audience", envOr("JWT_AUDIENCE", "silverback-api"), "token audience")
		userID   = fs.String("user", "", "user id (uuid)")
		ttl      = fs.Duration("ttl", time.Hour, "token lifetime")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" || *userID == "" {
		return fmt.Errorf("token: -secret and -user are required")
	}

	tok, err := security.NewJWTSigner(*secret, *issuer, *audience).SignAccessToken(*userID, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}

func runHash(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	var (
		password = fs.String("password", "", "plain text password")
		cost     = fs.Int("cost", 12, "bcrypt cost")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return fmt.Errorf("hash: -password is required")
	}

	h, err := security.NewBcryptHasher(*cost).Hash(*password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, h)
	return err
}

func runBrute(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("brute", flag.ContinueOnError)
	var (
		addr    = fs.String("addr", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address host:port")
		pass    = fs.String("pass", os.Getenv("REDIS_PASSWORD"), "redis password")
		db      = fs.Int("db", 0, "redis db")
		pattern = fs.String("pattern", "brute:*", "scan pattern")
		doDel   = fs.Bool("del", false, "delete matched keys (unblocks the client)")
		count   = fs.Int64("count", 200, "SCAN COUNT hint")
		timeout = fs.Duration("timeout", 2*time.Second, "per-command timeout")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: *addr, Password: *pass, DB: *db})
	defer rdb.Close()

	return scanBrute(context.Background(), rdb, out, *pattern, *count, *timeout, *doDel)
}

func scanBrute(ctx context.Context, rdb *goredis.Client, out io.Writer, pattern string, count int64, timeout time.Duration, del bool) error {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	var cursor uint64
	total := 0
	for {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		keys, next, err := rdb.Scan(sctx, cursor, pattern, count).Result()
		cancel()
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}

		for _, k := range keys {
			total++
			cctx, cancel := context.WithTimeout(ctx, timeout)
			fields, _ := rdb.HGetAll(cctx, k).Result()
			ttl, _ := rdb.TTL(cctx, k).Result()
			fmt.Fprintf(out, "%d) %s ttl=%s count=%s last_ms=%s\n", total, k, ttl, fields["count"], fields["last"])
			if del {
				if err := rdb.Del(cctx, k).Err(); err != nil {
					fmt.Fprintf(out, "   DEL error: %v\n", err)
				} else {
					fmt.Fprintln(out, "   deleted")
				}
			}
			cancel()
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if total == 0 {
		fmt.Fprintln(out, "No keys matched.")
	}
	return nil
}
