package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/coregx/bookstore"
	"github.com/coregx/bookstore/internal/core"
	"github.com/coregx/bookstore/internal/schema"
)

type getFlags struct {
	skipCache bool
	cutoff    string
	app       string
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	f := &getFlags{}
	cmd := &cobra.Command{
		Use:   "get <id|stories|metadata>",
		Short: "Read records through the data layer",
		Long: `Read a story, chapter, paragraph or identity by id, or the story list
or configuration metadata, applying the tenant, publish-date and cache rules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := core.ParseCutoff(f.cutoff)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid cutoff", err)
			}
			db, err := openDB(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			opts := bookstore.ReadOptions{SkipCache: f.skipCache, Cutoff: cutoff, ApplicationKey: f.app}
			v, err := read(cmd.Context(), db, args[0], opts)
			if err != nil {
				return WrapExitError(ExitFailure, "get "+args[0], err)
			}
			return rootOpts.formatter(cmd).Success(v, func(w io.Writer) error {
				return writeIndented(w, v)
			})
		},
	}
	cmd.Flags().BoolVar(&f.skipCache, "skip-cache", false, "read from the database only")
	cmd.Flags().StringVar(&f.cutoff, "cutoff", "now", "publish cutoff: now, none or a timestamp")
	cmd.Flags().StringVar(&f.app, "app", "", "application key (tenant); defaults to the configured one")
	return cmd
}

func read(ctx context.Context, db *bookstore.DB, target string, opts bookstore.ReadOptions) (any, error) {
	switch target {
	case "stories":
		return db.ListStories(ctx, opts)
	case "metadata":
		return db.GetMetadata(ctx, opts)
	}

	t, err := schema.ByID(target)
	if err != nil {
		return nil, err
	}
	switch t.Name {
	case schema.Story.Name:
		return db.GetStory(ctx, target, opts)
	case schema.Chapter.Name:
		return db.GetChapter(ctx, target, opts)
	case schema.Paragraph.Name:
		return db.GetParagraph(ctx, target, opts)
	case schema.Identity.Name:
		return db.GetIdentity(ctx, target)
	}
	return nil, bookstore.ErrWrongKind
}

func openDB(cmd *cobra.Command, rootOpts *RootOptions) (*bookstore.DB, error) {
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	var opts []bookstore.Option
	if rootOpts.Verbose {
		l, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "configure logging", err)
		}
		opts = append(opts, bookstore.WithLogger(l))
	}
	db, err := bookstore.Open(cfg, opts...)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "open bookstore", err)
	}
	return db, nil
}
