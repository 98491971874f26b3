// Command sslcachectl exercises the object cache against real files on
// disk, for manual testing and demonstration of the fetch/inherit/evict
// paths outside of an actual TLS stack.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/wolfeidau/sslcache"
)

type cli struct {
	LogLevel  string `help:"Log level (debug, info, warn, error)." enum:"debug,info,warn,error" default:"info"`
	LogFormat string `help:"Log format (text, json)." enum:"text,json" default:"text"`

	Inherit  bool          `help:"Default value for object_cache_inherit (configuration cache only)." default:"true"`
	Max      int           `help:"Connection cache capacity." default:"1024"`
	Valid    time.Duration `help:"Connection cache freshness window for PATH entries." default:"1h"`
	Inactive time.Duration `help:"Connection cache idle eviction threshold." default:"5m"`

	FetchConfig     fetchConfigCmd     `cmd:"" help:"Fetch a reference through a fresh configuration cache."`
	FetchConnection fetchConnectionCmd `cmd:"" help:"Fetch a reference through a fresh connection cache."`
	Stats           statsCmd           `cmd:"" help:"Fetch several references and report cache occupancy."`
}

type fetchConfigCmd struct {
	Family    string `arg:"" help:"cert, pkey, crl, or ca."`
	Reference string `arg:"" help:"Reference string (data:, engine:, or a filesystem path)."`
}

type fetchConnectionCmd struct {
	Family    string `arg:"" help:"cert, pkey, crl, or ca."`
	Reference string `arg:"" help:"Reference string (data:, engine:, or a filesystem path)."`
}

type statsCmd struct {
	References []string `arg:"" help:"One or more filesystem paths to fetch as CERT references."`
}

func main() {
	var c cli
	kctx := kong.Parse(&c, kong.Description("Inspect the ssl object cache engine against real files."))

	logger, err := newLogger(c.LogLevel, c.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := kctx.Run(&c); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	switch format {
	case "text":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: lvl})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
}

func parseFamily(s string) (sslcache.Family, error) {
	switch s {
	case "cert":
		return sslcache.CERT, nil
	case "pkey":
		return sslcache.PKEY, nil
	case "crl":
		return sslcache.CRL, nil
	case "ca":
		return sslcache.CA, nil
	default:
		return 0, fmt.Errorf("unknown family %q", s)
	}
}

func (cmd *fetchConfigCmd) Run(c *cli) error {
	family, err := parseFamily(cmd.Family)
	if err != nil {
		return err
	}

	loaders := &sslcache.Loaders{PathPrefix: "."}
	cache := sslcache.NewConfigCache(loaders, c.Inherit, nil)

	handle, err := cache.Fetch(family, cmd.Reference, nil)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer handle.Release()

	slog.Info("fetched", "family", family, "generation", cache.Generation())
	describeHandle(family, handle)
	return nil
}

func (cmd *fetchConnectionCmd) Run(c *cli) error {
	family, err := parseFamily(cmd.Family)
	if err != nil {
		return err
	}

	loaders := &sslcache.Loaders{PathPrefix: "."}
	cache := sslcache.NewConnectionCache(loaders, c.Max, c.Valid, c.Inactive)

	handle, err := sslcache.ConnectionFetch(cache, loaders, family, cmd.Reference, nil)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer handle.Release()

	slog.Info("fetched", "family", family, "current", cache.Current())
	describeHandle(family, handle)
	return nil
}

func (cmd *statsCmd) Run(c *cli) error {
	loaders := &sslcache.Loaders{PathPrefix: "."}
	cache := sslcache.NewConnectionCache(loaders, c.Max, c.Valid, c.Inactive)

	var handles []sslcache.Handle
	for _, ref := range cmd.References {
		h, err := sslcache.ConnectionFetch(cache, loaders, sslcache.CERT, ref, nil)
		if err != nil {
			slog.Warn("fetch failed", "reference", ref, "error", err)
			continue
		}
		handles = append(handles, h)
	}
	defer func() {
		for _, h := range handles {
			h.Release()
		}
	}()

	slog.Info("stats", "fetched", len(handles), "current", cache.Current(), "max", c.Max)
	return nil
}

func describeHandle(family sslcache.Family, h sslcache.Handle) {
	switch family {
	case sslcache.CERT, sslcache.CA:
		chain := h.(*sslcache.CertChain)
		for _, cert := range chain.Certificates() {
			slog.Info("certificate", "subject", cert.Subject.String(), "not_after", cert.NotAfter)
		}
	case sslcache.CRL:
		chain := h.(*sslcache.CRLChain)
		for _, crl := range chain.Lists() {
			slog.Info("crl", "issuer", crl.Issuer.String(), "number", crl.Number)
		}
	case sslcache.PKEY:
		key := h.(*sslcache.PrivateKey)
		slog.Info("private key", "public", key.Signer().Public())
	}
}
