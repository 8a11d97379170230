// Command notesd serves the notes API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	on "github.com/panyam/otpnotes"
	notesgrpc "github.com/panyam/otpnotes/grpc"
	"github.com/panyam/otpnotes/mailers"
	"github.com/panyam/otpnotes/oauth2"
	"github.com/panyam/otpnotes/stores/bunt"
	"github.com/panyam/otpnotes/stores/fs"
	"github.com/panyam/otpnotes/stores/gae"
	gormstore "github.com/panyam/otpnotes/stores/gorm"
)

var (
	httpAddr = flag.String("http.addr", "", "HTTP listen address (overrides NOTES_ADDR)")
	grpcAddr = flag.String("grpc.addr", "", "gRPC listen address (overrides NOTES_GRPC_ADDR)")
)

func main() {
	flag.Parse()
	cfg := ConfigFromEnv()
	if *httpAddr != "" {
		cfg.Addr = *httpAddr
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	setupLogging(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("notesd exited", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func run(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	accounts, notes, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := on.NewMetrics(reg)

	session := scs.New()
	session.Lifetime = on.DefaultCredentialExpiry
	session.Cookie.Secure = cfg.SecureCookies
	session.Cookie.SameSite = http.SameSiteLaxMode

	app := &on.App{
		Challenges: &on.ChallengeEngine{
			Accounts:    accounts,
			EmailSender: newMailer(cfg),
			OTPExpiry:   cfg.OTPExpiry,
		},
		Notes:       &on.NoteService{Store: notes},
		Accounts:    accounts,
		Credentials: &on.CredentialIssuer{SecretKey: cfg.JWTSecretKey},
		Session:     session,
		Metrics:     metrics,
	}

	if cfg.GoogleClientID != "" {
		verifier, err := on.NewGoogleIDTokenVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			return fmt.Errorf("google verifier: %w", err)
		}
		app.Federated = &on.FederatedBridge{Accounts: accounts, Verifier: verifier}
		if cfg.GoogleClientSecret != "" && cfg.GoogleCallbackURL != "" {
			app.GoogleRedirect = oauth2.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, app.HandleGoogleIDToken).Handler()
		}
		slog.Info("google login enabled", "redirect_flow", app.GoogleRedirect != nil)
	} else {
		slog.Warn("GOOGLE_CLIENT_ID not set, POST /auth/google will fail")
	}
	app.EnsureDefaults()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", app.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		slog.Info("listening", "transport", "http", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcServer, err = serveGRPC(cfg.GRPCAddr, app, errs)
		if err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errs:
		slog.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return server.Shutdown(shutdownCtx)
}

// serveGRPC exposes the note operations behind the credential interceptors.
// Only the health service is reachable without a credential.
func serveGRPC(addr string, app *on.App, errs chan<- error) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen: %w", err)
	}
	auth := notesgrpc.NewPublicMethodsConfig(app.Credentials.VerifyTokenFunc(),
		healthpb.Health_Check_FullMethodName,
		healthpb.Health_Watch_FullMethodName,
	)
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(notesgrpc.UnaryAuthInterceptor(auth)),
		grpc.StreamInterceptor(notesgrpc.StreamAuthInterceptor(auth)),
	)
	healthpb.RegisterHealthServer(srv, health.NewServer())
	notesgrpc.RegisterNotesServer(srv, &notesgrpc.NotesServer{Notes: app.Notes})
	go func() {
		slog.Info("listening", "transport", "grpc", "addr", addr)
		if err := srv.Serve(lis); err != nil {
			errs <- err
		}
	}()
	return srv, nil
}

func openStores(ctx context.Context, cfg *Config) (on.AccountStore, on.NoteStore, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Info("using store", "kind", "postgres")
		closer := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return gormstore.NewAccountStore(db), gormstore.NewNoteStore(db), closer, nil

	case cfg.DatastoreProject != "":
		client, err := datastore.NewClient(ctx, cfg.DatastoreProject)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open datastore: %w", err)
		}
		slog.Info("using store", "kind", "datastore", "project", cfg.DatastoreProject)
		return gae.NewAccountStore(client, cfg.DatastoreNamespace), gae.NewNoteStore(client, cfg.DatastoreNamespace), func() { client.Close() }, nil

	case cfg.FSDir != "":
		slog.Info("using store", "kind", "fs", "dir", cfg.FSDir)
		return fs.NewFSAccountStore(cfg.FSDir), fs.NewFSNoteStore(cfg.FSDir), func() {}, nil

	default:
		store, err := bunt.New(cfg.BuntPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open buntdb: %w", err)
		}
		slog.Info("using store", "kind", "buntdb", "path", cfg.BuntPath)
		return store, store, func() { store.Close() }, nil
	}
}

func newMailer(cfg *Config) on.SendEmail {
	switch {
	case cfg.ResendAPIKey != "":
		slog.Info("using mailer", "kind", "resend")
		return &mailers.ResendMailer{
			APIKey:  cfg.ResendAPIKey,
			From:    cfg.MailFrom,
			BaseURL: mailers.DefaultResendBaseURL,
			Client:  &http.Client{Timeout: 5 * time.Second},
		}
	case cfg.SMTPHost != "":
		slog.Info("using mailer", "kind", "smtp", "host", cfg.SMTPHost)
		return &mailers.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		}
	default:
		slog.Warn("no mailer configured, codes are logged to the console")
		return &on.ConsoleEmailSender{}
	}
}
