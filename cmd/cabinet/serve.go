// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/cabinet/internal/config"
	"github.com/pdiddy/cabinet/internal/server"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST app",
	Long: `Serve runs the REST app: a dictionary NER model over the package data with
SNOMED CT subtree filtering (POST /models/ner, GET /models/ner/ws), release
redirects, health, and Prometheus metrics. With server.reload_interval set the
package data is reloaded from disk on that schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("address"); addr != "" {
			cfg.Server.Address = addr
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Server.Port = port
		}
		level, _ := cmd.Flags().GetString("log-level")
		if err := config.ValidateServer(cfg.Server, level); err != nil {
			return err
		}

		// The SNOMED CT tree dominates the heap; keep GC under a container limit.
		if limit, err := memlimit.SetGoMemLimitWithOpts(
			memlimit.WithRatio(0.9),
			memlimit.WithProvider(memlimit.FromCgroup),
		); err != nil {
			log.WithError(err).Debug("no cgroup memory limit")
		} else {
			log.WithField("bytes", limit).Debug("memory limit set")
		}

		kb, err := loadKnowledge()
		if err != nil {
			return err
		}

		srv := server.New(cfg.Server, kb, log)
		if err := srv.StartScheduler(loadKnowledge); err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(srv.ListenAndServe)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("address", "", "listen address (default 127.0.0.1)")
	serveCmd.Flags().String("port", "", "listen port (default 8000)")

	rootCmd.AddCommand(serveCmd)
}
