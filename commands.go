package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"licensepro-backend/config"
	"licensepro-backend/models"
	"licensepro-backend/routes"
	"licensepro-backend/services"
	"licensepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "licensepro",
		Short:         "License purchase tracking with expiry notifications",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddCommand(newServeCmd(), newNotifyCmd(), newUserCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Example: `
  licensepro serve
  licensepro serve --scheduler`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if withScheduler {
				scheduler, err := startScheduler(ctx, a)
				if err != nil {
					return err
				}
				defer scheduler.Stop()
			}

			if a.cfg.Env == "production" {
				gin.SetMode(gin.ReleaseMode)
			}
			r := routes.SetupRouter(routes.Deps{
				Config:        a.cfg,
				DB:            a.db,
				Log:           a.log,
				Clock:         a.clock,
				Notifications: a.notifier,
				Store:         a.store,
				Settings:      a.settings,
				Currency:      a.currency,
				Metrics:       a.metrics,
			})
			printRoutes(r, a.log)

			return serve(ctx, r, a.cfg.Port, a.log)
		},
	}

	cmd.Flags().BoolVar(&withScheduler, "scheduler", false, "run the daily notification job in this process")
	return cmd
}

// startScheduler schedules the daily run from the stored settings and
// reschedules it whenever they change.
func startScheduler(ctx context.Context, a *app) (*services.Scheduler, error) {
	st, err := a.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	scheduler := services.NewScheduler(a.notifier, a.log)
	if err := scheduler.Reload(*st); err != nil {
		return nil, err
	}
	a.settings.OnChange(func(st models.NotificationSettings) {
		if err := scheduler.Reload(st); err != nil {
			a.log.Error("Failed to reschedule notifications", zap.Error(err))
		}
	})

	scheduler.Start()
	return scheduler, nil
}

func serve(ctx context.Context, handler http.Handler, port string, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serving http")
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printRoutes(r *gin.Engine, log *zap.Logger) {
	for _, route := range r.Routes() {
		log.Debug("route", zap.String("method", route.Method), zap.String("path", route.Path))
	}
}

func newNotifyCmd() *cobra.Command {
	var licenseID uint
	var force bool

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send license expiry notifications now",
		Example: `
  licensepro notify
  licensepro notify --license-id 42 --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if force && licenseID == 0 {
				return errors.New("--force requires --license-id")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var report *services.RunReport
			if licenseID != 0 {
				report, err = a.notifier.SendForLicense(ctx, licenseID, force)
			} else {
				report, err = a.notifier.Run(ctx, services.TriggerCLI)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return errors.Wrap(err, "writing report")
			}
			if report.ErrorsCount > 0 {
				return errors.Errorf("notification run finished with %d errors", report.ErrorsCount)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.UintVar(&licenseID, "license-id", 0, "notify a single license")
	f.BoolVar(&force, "force", false, "resend even if already notified today")
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user that can log in to the API",
		Example: `
  licensepro user create --email admin@example.com --name Admin --password secret123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if !utils.ValidateEmail(email) {
				return errors.Errorf("invalid email %q", email)
			}
			if len(password) < 8 {
				return errors.New("password must be at least 8 characters")
			}
			if name == "" {
				name = email
			}

			cfg, err := config.Load()
			if err != nil {
				return errors.Wrap(err, "loading configuration")
			}
			log, err := config.NewLogger(cfg.LogLevel, cfg.Env)
			if err != nil {
				return err
			}
			db, err := config.ConnectDB(cfg.DB, log)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(&models.User{}); err != nil {
				return errors.Wrap(err, "migrating users")
			}

			user := models.User{Email: email, Name: name, Password: password, IsActive: true}
			if err := db.WithContext(cmd.Context()).Create(&user).Error; err != nil {
				if config.IsDuplicateKeyErr(err) {
					return errors.Errorf("user %s already exists", email)
				}
				return errors.Wrap(err, "creating user")
			}

			log.Info("User created", zap.Uint("id", user.ID), zap.String("email", user.Email))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&email, "email", "", "login email")
	f.StringVar(&name, "name", "", "display name")
	f.StringVar(&password, "password", "", "password, at least 8 characters")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
