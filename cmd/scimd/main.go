package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tullo/conf"
	"go.uber.org/zap"

	"github.com/tullo/scimd/internal/cache"
	"github.com/tullo/scimd/internal/directory"
	"github.com/tullo/scimd/internal/provision"
	"github.com/tullo/scimd/internal/scim"
	"github.com/tullo/scimd/tracer"
)

// build is the git version of this application. It is set using build flags in the makefile.
var build = "develop"

// define the interfaces inline to keep the code simple
type application struct {
	debug    bool
	log      *zap.SugaredLogger
	registry *prometheus.Registry
	users    interface {
		Create(context.Context, *scim.CreateUserRequest) (*scim.User, error)
		Get(context.Context, string) (*scim.User, error)
		Delete(context.Context, string) error
		Replace(context.Context, string) error
		Patch(context.Context, string) error
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Printf("error: %s", err)
		os.Exit(1)
	}
}

func run(args []string) error {

	// =========================================================================
	// Configuration

	var cfg struct {
		conf.Version
		Web struct {
			Host            string        `conf:"default::8080"`
			BaseURL         string        `conf:"default:https://example.com"`
			DebugMode       bool          `conf:"default:false"`
			EnableTLS       bool          `conf:"default:false"`
			CertFile        string        `conf:"default:./tls/localhost/cert.pem"`
			KeyFile         string        `conf:"default:./tls/localhost/key.pem"`
			IdleTimeout     time.Duration `conf:"default:1m"`
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:5s"`
			ShutdownTimeout time.Duration `conf:"default:5s"`
		}
		Cache struct {
			Backend     string        `conf:"default:bolt"`
			Path        string        `conf:"default:./data/scimd.db"`
			OpenTimeout time.Duration `conf:"default:1s"`
		}
		LDAP struct {
			URL                string        `conf:"default:ldap://localhost:389"`
			BindDN             string        `conf:"default:cn=admin,dc=example,dc=com"`
			BindPassword       string        `conf:"noprint,default:admin"`
			BaseDN             string        `conf:"default:ou=users,dc=example,dc=com"`
			StartTLS           bool          `conf:"default:false"`
			InsecureSkipVerify bool          `conf:"default:false"`
			Timeout            time.Duration `conf:"default:5s"`
		}
		Zipkin struct {
			ReporterURI string  `conf:"default:http://localhost:9411/api/v2/spans"`
			ServiceName string  `conf:"default:scimd"`
			Probability float64 `conf:"default:0.05"`
		}
		Args conf.Args
	}
	cfg.Version.Version = build
	cfg.Version.Description = "SCIM user provisioning with LDAP mirroring"

	if err := conf.Parse(args, "SCIM", &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage("SCIM", &cfg)
			if err != nil {
				return errors.Wrap(err, "generating usage")
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString("SCIM", &cfg)
			if err != nil {
				return errors.Wrap(err, "generating version")
			}
			fmt.Println(version)
			return nil
		}
		return errors.Wrap(err, "error: parsing config")
	}

	// =========================================================================
	// Logging

	zlog, err := newLogger(cfg.Web.DebugMode)
	if err != nil {
		return errors.Wrap(err, "building logger")
	}
	defer zlog.Sync()
	sugar := zlog.Sugar()

	sugar.Infof("main: Started : Application initializing : version %q", build)
	defer sugar.Info("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return errors.Wrap(err, "generating config for output")
	}
	sugar.Infof("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Tracing Support

	stdLog := zap.NewStdLog(zlog)
	flush, err := tracer.Init(cfg.Zipkin.ServiceName, cfg.Zipkin.ReporterURI, cfg.Zipkin.Probability, stdLog)
	if err != nil {
		return errors.Wrap(err, "starting tracer")
	}
	defer flush(context.Background())

	// =========================================================================
	// Start Resource Cache

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var store cache.Store
	switch cfg.Cache.Backend {
	case "bolt":
		bs := cache.NewBoltStore(cfg.Cache.Path)
		bs.WithLogger(zlog.With(zap.String("component", "cache")))
		bs.WithTimeout(cfg.Cache.OpenTimeout)
		if err := bs.Open(context.Background()); err != nil {
			return errors.Wrap(err, "opening cache")
		}
		registry.MustRegister(bs)
		store = bs
	case "memory":
		store = cache.NewMemoryStore()
	default:
		return errors.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	defer func() {
		sugar.Info("main: Closing cache")
		store.Close()
	}()

	// =========================================================================
	// Start Directory Connection

	sugar.Infof("main: Binding to directory %s as %s", cfg.LDAP.URL, cfg.LDAP.BindDN)
	dir, err := directory.Dial(directory.Config{
		URL:                cfg.LDAP.URL,
		BindDN:             cfg.LDAP.BindDN,
		BindPassword:       cfg.LDAP.BindPassword,
		BaseDN:             cfg.LDAP.BaseDN,
		StartTLS:           cfg.LDAP.StartTLS,
		InsecureSkipVerify: cfg.LDAP.InsecureSkipVerify,
		Timeout:            cfg.LDAP.Timeout,
	})
	if err != nil {
		return errors.Wrap(err, "connecting to directory")
	}
	defer func() {
		sugar.Info("main: Closing directory connection")
		dir.Close()
	}()

	// =========================================================================
	// Start API Service

	metrics := provision.NewMetrics()
	registry.MustRegister(metrics.PrometheusCollectors()...)

	svc := provision.New(store, dir, cfg.Web.BaseURL,
		provision.WithLogger(zlog.With(zap.String("component", "provision"))),
		provision.WithMetrics(metrics),
	)

	app := &application{
		debug:    cfg.Web.DebugMode,
		log:      sugar,
		registry: registry,
		users:    svc,
	}

	// make a channel to listen for an interrupt or terminate signal from the OS.
	// use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// use Go’s favored cipher suites (support for forward secrecy)
	// and elliptic curves that are performant under heavy loads
	tlsConfig := &tls.Config{
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:         cfg.Web.Host,
		ErrorLog:     stdLog,
		Handler:      app.routes(),
		TLSConfig:    tlsConfig,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// Start the service listening for requests.
	go func() {
		sugar.Infof("Starting server on %s", cfg.Web.Host)
		if cfg.Web.EnableTLS {
			serverErrors <- srv.ListenAndServeTLS(cfg.Web.CertFile, cfg.Web.KeyFile)
			return
		}
		serverErrors <- srv.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		sugar.Infof("main : %v : Start shutdown", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Trigger graceful shutdown of the server, listeners.
		if err := srv.Shutdown(ctx); err != nil {
			sugar.Infof("main : Graceful shutdown did not complete in %v : %v", cfg.Web.ShutdownTimeout, err)
			if err := srv.Close(); err != nil {
				return errors.Wrap(err, "could not stop server gracefully")
			}
		}
	}

	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
