package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
)

const healthcheckTimeout = 5 * time.Second

func healthcheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "healthcheck",
		Usage: "probe a running server's /health endpoint (for container health checks)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "health endpoint; defaults to localhost on the configured port",
			},
		},
		Action: healthcheckAction,
	}
}

func healthcheckAction(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")
	if url == "" {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		url = fmt.Sprintf("http://127.0.0.1:%d/health", cfg.HTTP.Port)
	}
	return probe(ctx, http.DefaultClient, url)
}

func probe(ctx context.Context, client *http.Client, url string) error {
	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("unhealthy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
