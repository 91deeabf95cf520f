package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/coregx/bookstore/internal/cache"
	"github.com/coregx/bookstore/internal/config"
)

// KeyResult describes the keys of one lookup.
type KeyResult struct {
	Lookup string `json:"lookup"`
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Legacy string `json:"legacy,omitempty"`
	TTL    string `json:"ttl"`
}

// CacheEntry is the JSON payload of cache get.
type CacheEntry struct {
	Key    string          `json:"key"`
	Result string          `json:"result"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// NewCacheKeyCommand creates the cache-key command.
func NewCacheKeyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cache-key <lookup>",
		Short: "Resolve the cache keys of a lookup",
		Long: `Resolve the cache keys of a record id, storiesAll, metadata or a
used-auth-codes lookup within the configured namespace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			gen, err := keyFactory(cfg).Resolve(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "resolve key", err)
			}

			result := KeyResult{
				Lookup: args[0],
				Kind:   string(gen.Kind),
				Key:    gen.Key(),
				TTL:    gen.Lifetime().String(),
			}
			if legacy, ok := gen.LegacyKey(); ok {
				result.Legacy = legacy
			}
			return rootOpts.formatter(cmd).Success(result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s\t%s\tttl=%s\n", result.Kind, result.Key, result.TTL)
				return err
			})
		},
	}
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Read or evict cache entries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <lookup>",
		Short: "Print the cached value of a lookup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			var value json.RawMessage
			res, err := db.Cache().Get(cmd.Context(), args[0], &value)
			if err != nil {
				return WrapExitError(ExitFailure, "cache get", err)
			}
			entry := CacheEntry{Key: args[0], Result: res.String()}
			if res == cache.Hit {
				entry.Value = value
			}
			return rootOpts.formatter(cmd).Success(entry, func(w io.Writer) error {
				if res != cache.Hit {
					_, err := fmt.Fprintln(w, res)
					return err
				}
				return writeIndented(w, entry.Value)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "del <lookup>",
		Short: "Evict the current and legacy keys of a lookup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			gen, err := db.Cache().Keys().Resolve(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "resolve key", err)
			}
			if err := db.Cache().Del(cmd.Context(), args[0]); err != nil {
				return WrapExitError(ExitFailure, "cache del", err)
			}
			keys := gen.Keys()
			return rootOpts.formatter(cmd).Success(keys, func(w io.Writer) error {
				for _, k := range keys {
					if _, err := fmt.Fprintln(w, "deleted", k); err != nil {
						return err
					}
				}
				return nil
			})
		},
	})
	return cmd
}

func keyFactory(cfg *config.Config) cache.KeyFactory {
	return cache.KeyFactory{
		Namespace: cache.Namespace{
			KeyPrefix:      cfg.Cache.KeyPrefix,
			ApplicationKey: cfg.Cache.ApplicationKey,
			DataIncrement:  cfg.Cache.DataIncrement,
		},
		DefaultTTL: cfg.Cache.DefaultTTL,
	}
}
