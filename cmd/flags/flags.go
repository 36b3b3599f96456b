package flags

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/exampledb/api"
	"github.com/ruteri/exampledb/common"
	"github.com/ruteri/exampledb/cryptoutils"
	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/storage"
	"github.com/urfave/cli/v2"
)

// SetupLogger builds the command logger from the log flags. Logs go to
// stdout unless the command prints results there.
func SetupLogger(cCtx *cli.Context, output io.Writer) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	if output == nil {
		output = os.Stdout
	}

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
		Output:  output,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String("metrics-addr")
	enablePprof := cCtx.Bool("pprof")
	drainDuration := time.Duration(cCtx.Int64("drain-seconds")) * time.Second
	maxValueSize := cCtx.Int64(MaxValueSizeFlag.Name)

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		MaxValueSize:             maxValueSize,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// OpenDatabase builds the store for the given location URIs. A single
// location is used directly; several are combined into a multi-storage
// backend. The TLS client certificate flags, when set, are presented to
// backends that support client authentication.
func OpenDatabase(cCtx *cli.Context, uris []string, logger *slog.Logger) (*storage.Database, error) {
	if len(uris) == 0 {
		return nil, fmt.Errorf("at least one --%s location is required", DBFlag.Name)
	}

	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}

	var factory interfaces.StorageBackendFactory = storage.NewStorageBackendFactory(logger)
	certFile, keyFile := cCtx.String(TLSClientCertFlag.Name), cCtx.String(TLSClientKeyFlag.Name)
	switch {
	case certFile != "" && keyFile != "":
		factory = factory.WithTLSAuth(cryptoutils.ClientCertLoader(certFile, keyFile))
	case certFile != "" || keyFile != "":
		return nil, fmt.Errorf("--%s and --%s must be set together", TLSClientCertFlag.Name, TLSClientKeyFlag.Name)
	}

	var backend interfaces.ExampleDatabase
	var err error
	if len(locations) == 1 {
		backend, err = factory.StorageBackendFor(locations[0])
	} else {
		backend, err = factory.CreateMultiBackend(locations)
	}
	if err != nil {
		return nil, err
	}

	return storage.NewDatabase(backend, logger), nil
}

var DBFlag = &cli.StringSliceFlag{
	Name:    "db",
	Value:   cli.NewStringSlice("file://./.exampledb"),
	EnvVars: []string{"EXAMPLEDB_LOCATIONS"},
	Usage:   "storage location URI, repeat to replicate across several (file, memory, leveldb, s3, ipfs, vault, github, http, srv)",
}

var TLSClientCertFlag = &cli.StringFlag{
	Name:    "tls-client-cert",
	EnvVars: []string{"EXAMPLEDB_TLS_CLIENT_CERT"},
	Usage:   "PEM certificate presented to storage backends requiring TLS client auth",
}
var TLSClientKeyFlag = &cli.StringFlag{
	Name:    "tls-client-key",
	EnvVars: []string{"EXAMPLEDB_TLS_CLIENT_KEY"},
	Usage:   "PEM private key for --tls-client-cert",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MaxValueSizeFlag = &cli.Int64Flag{
	Name:  "max-value-size",
	Value: api.MaxValueSize,
	Usage: "largest value in bytes the server accepts",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var StoreFlags = []cli.Flag{
	DBFlag,
	TLSClientCertFlag,
	TLSClientKeyFlag,
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var ServerFlags = []cli.Flag{
	MaxValueSizeFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
