package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/target/municipal-portal/config"
	redisadapter "github.com/target/municipal-portal/internal/adapters/redis"
	"github.com/target/municipal-portal/internal/bootstrap"
	"github.com/target/municipal-portal/internal/session"
)

type revokeOptions struct {
	IDs []string
}

func parseRevokeFlags(args []string) (revokeOptions, error) {
	var raw string
	fs := flag.NewFlagSet("revoke-session", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&raw, "id", "", "comma-separated browser session ids")
	if err := fs.Parse(args); err != nil {
		return revokeOptions{}, fmt.Errorf("parse flags: %w", err)
	}

	var opts revokeOptions
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			opts.IDs = append(opts.IDs, id)
		}
	}
	if len(opts.IDs) == 0 {
		return opts, errors.New("-id is required")
	}
	return opts, nil
}

// runRevokeSession removes sessions from Redis. Live portal processes keep
// their in-memory copy until its next identity check fails or it is evicted.
func runRevokeSession(cmdCtx *commandContext, args []string) error {
	opts, err := parseRevokeFlags(args)
	if err != nil {
		return err
	}
	if cmdCtx.Config.Session.Store != config.SessionStoreRedis {
		return fmt.Errorf("revoke-session needs SESSION_STORE=redis, got %q", cmdCtx.Config.Session.Store)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 30*time.Second)
	defer cancel()

	client, err := bootstrap.ConnectRedis(ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	sessions := redisadapter.NewSessionStoreWithPrefix(client, cmdCtx.Config.Redis.KeyPrefix)
	identities := redisadapter.NewIdentityCache(client)

	var errs []error
	for _, id := range opts.IDs {
		if delErr := sessions.Delete(ctx, id); delErr != nil {
			errs = append(errs, fmt.Errorf("delete session %s: %w", id, delErr))
			continue
		}
		if delErr := identities.Delete(ctx, session.IdentityCacheKey(id)); delErr != nil {
			errs = append(errs, fmt.Errorf("delete identity %s: %w", id, delErr))
			continue
		}
		if werr := writef(cmdCtx.Out, "revoked %s\n", id); werr != nil {
			return werr
		}
	}
	return errors.Join(errs...)
}
