package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Label-Scanner-Backend/cmd/config"
	migration "Label-Scanner-Backend/cmd/database/migrate"
	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/internal/utils"
	"Label-Scanner-Backend/pkg/jwt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "label-scanner: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "label-scanner",
		Short:        "Food label scanning backend",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.LoadConfigFrom(configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newReprocessCmd(),
		newTokenCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			if migrate {
				if err := migration.Migrate(db); err != nil {
					return err
				}
			}

			services, err := config.NewServices(ctx, db)
			if err != nil {
				return err
			}
			defer services.Close()

			app, err := config.NewApp(services)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Listen(":" + utils.GetConfigOr("APP_PORT", "3000"))
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				log.Info("shutting down server")
				return app.ShutdownWithTimeout(10 * time.Second)
			}
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Run database migrations before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			return migration.Migrate(db)
		},
	}
}

func newReprocessCmd() *cobra.Command {
	var barcode string
	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Retry ingestion for every entry in the pending-failures list",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			services, err := config.NewServices(ctx, db)
			if err != nil {
				return err
			}
			defer services.Close()

			pending, err := services.Product.Failures(ctx)
			if err != nil {
				return err
			}

			var failed int
			for _, p := range pending {
				if barcode != "" && p.Barcode != barcode {
					continue
				}
				res, err := services.Product.Reprocess(ctx, domain.ReprocessRequest{
					URL:        p.URL,
					Name:       p.Name,
					Barcode:    p.Barcode,
					ImagePaths: p.ImagePaths,
				})
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s\tfailed\t%v\n", p.Barcode, err)
					if errors.Is(ctx.Err(), context.Canceled) {
						return ctx.Err()
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Barcode, res.Message)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d products failed", failed, len(pending))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&barcode, "barcode", "", "Only reprocess this barcode")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		operator string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token for the protected routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := jwt.NewJWTService().GenerateToken(operator, domain.RoleAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "admin", "Name recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", jwt.DefaultTokenTTL, "Token lifetime")
	return cmd
}
