package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"contact-sync/backend/internal/api"
	"contact-sync/backend/internal/auth"
	"contact-sync/backend/internal/logging"
	"contact-sync/backend/internal/mcp"
	devtls "contact-sync/backend/internal/tls"
	"contact-sync/backend/internal/tracing"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, the contact webhook and the MCP endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *opts)
		},
	}
}

func runServe(ctx context.Context, opts rootOptions) error {
	a, err := newApp(ctx, opts.EnvFile)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Info("Starting contact sync service")

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return err
	}

	svc := a.services()
	logger.Info("Service layer initialized")

	authz, err := auth.New(ctx, cfg, logger.Named("auth"))
	if err != nil {
		return fmt.Errorf("auth initialization failed: %w", err)
	}
	requireAuth := echo.WrapMiddleware(authz.RequireAuth)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler(logger)
	e.Validator = api.NewRequestValidator()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(cfg.Tracing.ServiceName))
	e.Use(requestLogger(logger.Named("http")))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, auth.HeaderCustomerID, auth.HeaderCustomerName},
	}))

	// Mount REST API handlers
	handler := api.NewHandler(api.Deps{
		Records:          svc.records,
		ContactImporter:  svc.contacts,
		EmployeeImporter: svc.employees,
		Flows:            svc.flows,
		Webhooks:         svc.webhooks,
		Store:            a.store,
		Logger:           logger,
	})
	api.RegisterHandlers(e, handler, requireAuth)
	api.RegisterDocs(e, cfg.Auth.Issuer, cfg.Auth.DocsClientID)
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))
	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(svc.records, svc.contacts, svc.employees, svc.flows)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer(), authz.RequireAuth)
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))
	logger.Info("MCP protocol handlers mounted")

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Server.Addr, "tls", cfg.TLS.Enable)
		if !cfg.TLS.Enable {
			serverErrors <- server.ListenAndServe()
			return
		}
		if cfg.IsDev() {
			created, err := devtls.EnsureSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
			if err != nil {
				serverErrors <- fmt.Errorf("failed to provision dev certificate: %w", err)
				return
			}
			if created {
				logger.Warn("Generated self-signed certificate", "cert_file", cfg.TLS.CertFile, "hostnames", cfg.TLS.Hostnames)
			}
		}
		serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("Tracer shutdown error", "error", err)
		}

		logger.Info("Server stopped gracefully")
	}
	return nil
}

// requestLogger logs one line per request through the application logger.
func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if tenant, ok := auth.TenantFrom(c.Request().Context()); ok {
				args = append(args, "customer_id", tenant.ID)
			}
			if v.Error != nil {
				logger.Warn("Request completed with error", append(args, "error", v.Error)...)
				return nil
			}
			logger.Info("Request completed", args...)
			return nil
		},
	})
}
