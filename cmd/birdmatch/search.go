package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/birdmatch/internal/app"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/request"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	chitransport "github.com/kailas-cloud/birdmatch/internal/transport/chi"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "run one search and print the results as JSON",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "maximum number of results (default from config)",
			},
			&cli.FloatFlag{
				Name:  "min-score",
				Usage: "similarity threshold (default from config)",
			},
		},
		Action: searchAction,
	}
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("search: query argument is required")
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wire app: %w", err)
	}
	defer a.Close()

	var opts []request.Option
	if cmd.IsSet("limit") {
		opts = append(opts, request.WithLimit(cmd.Int("limit")))
	}
	if cmd.IsSet("min-score") {
		opts = append(opts, request.WithMinScore(cmd.Float("min-score")))
	}

	out, err := a.Search.Search(ctx, query, opts...)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return printOutcome(cmd.Root().Writer, out)
}

func printOutcome(w io.Writer, out result.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(chitransport.NewSearchResponse(out)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
