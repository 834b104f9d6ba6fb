package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"splforge/internal/platform/di"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the record-keeping HTTP server",
	Long:  `Serves POST /api/create-token and the token record lookups, backed by the configured record store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildContainer(cmd.Context(), cmd, di.Options{NeedStore: true})
		if err != nil {
			return err
		}
		defer c.Close()

		port, _ := cmd.Flags().GetString("port")
		if port == "" {
			port = c.Config.Port
		}

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           c.Router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			log.Printf("[serve] listening on %s store=%s", srv.Addr, c.Config.StoreDriver)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("[serve] start shutdown signal=%v", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("[serve] graceful shutdown did not complete in %v: %v", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					log.Printf("[serve] error killing server: %v", err)
				}
			}
			log.Println("[serve] stopped")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config / PORT)")
}
