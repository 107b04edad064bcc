package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lepostier/lepostier/internal/config"
	"github.com/lepostier/lepostier/internal/members"
	"github.com/lepostier/lepostier/internal/server"
	"github.com/lepostier/lepostier/internal/site"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the catalog web server",
	Long:  `Starts the browse page, the JSON API, the member area and the staff dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serverPort > 0 {
			cfg.Server.Port = serverPort
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}, database)

		sessions := &members.Sessions{
			TTL:    cfg.Server.SessionTTL,
			Secure: cfg.Server.SecureCookies || cfg.Env == config.EnvProduction,
		}
		features := srv.NewFeatures(newPresenter(cfg), sessions, site.Options{
			MediaRoot:     cfg.Media.Root,
			StaticDir:     staticDir,
			SearchLimit:   cfg.Browse.SearchLimit,
			ResultLimit:   cfg.Browse.ResultLimit,
			SlideshowSize: cfg.Browse.SlideshowSize,
			SlideInterval: cfg.Browse.SlideInterval,
		})
		if err := srv.RegisterFeatures(features); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
			if _, created, err := features.Members.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
				return fmt.Errorf("bootstrapping admin: %w", err)
			} else if created {
				fmt.Fprintf(os.Stderr, "Created admin %q\n", cfg.Admin.Username)
			}
		}
		if n, err := features.Members.PurgeSessions(ctx, time.Now()); err == nil && n > 0 && verbose {
			fmt.Fprintf(os.Stderr, "Purged %d expired sessions\n", n)
		}

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		count, _ := features.Postcards.Count(ctx)
		fmt.Fprintf(os.Stderr, "lepostier server %s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", database.Dialect())
		fmt.Fprintf(os.Stderr, "  Media: %s\n", cfg.Media.Root)
		fmt.Fprintf(os.Stderr, "  Postcards: %d\n", count)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

var staticDir string

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "port to listen on (overrides config)")
	serverCmd.Flags().StringVar(&staticDir, "static", "static", "directory of extra static files such as the member card")
	rootCmd.AddCommand(serverCmd)
}
