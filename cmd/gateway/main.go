// File: cmd/gateway/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bootstraps the remote-workbench gateway: parses flags, wires the
// session broker, the RPC channel dispatcher, and the static asset
// handler onto one HTTP server, and serves until SIGINT/SIGTERM.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/momentics/workbench-gateway/api"
	"github.com/momentics/workbench-gateway/broker"
	"github.com/momentics/workbench-gateway/control"
	"github.com/momentics/workbench-gateway/httpstatic"
	"github.com/momentics/workbench-gateway/pool"
	"github.com/momentics/workbench-gateway/rpc"
	"github.com/momentics/workbench-gateway/session"
)

// gatewayVersion is overridden at build time via -ldflags.
var gatewayVersion = "dev"

type flags struct {
	addr                  string
	staticRoot            string
	workbenchHTML         string
	manifestPath          string
	faviconPath           string
	welcomeBanner         string
	extensionHostBinary   string
	uriTransformerPath    string
	builtinExtensionsRoot string
	userExtensionsRoot    string
	appRoot               string
	logLevel              string
	handshakeTimeout      time.Duration
	shutdownTimeout       time.Duration
	maxUnackedBytes       int
}

func parseFlags() flags {
	f := flags{}
	flag.StringVar(&f.addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&f.staticRoot, "static-root", "./static", "workbench static asset root (GET /static/*)")
	flag.StringVar(&f.workbenchHTML, "workbench-html", "./static/workbench.html", "workbench page template")
	flag.StringVar(&f.manifestPath, "manifest", "./static/manifest.json", "manifest.json path")
	flag.StringVar(&f.faviconPath, "favicon", "./static/favicon.ico", "favicon.ico path")
	flag.StringVar(&f.welcomeBanner, "welcome-banner", "", "workbench welcome banner text")
	flag.StringVar(&f.extensionHostBinary, "extension-host-binary", "", "path to the extension-host worker binary (required)")
	flag.StringVar(&f.uriTransformerPath, "uri-transformer-path", "uriTransformer.js", "--uriTransformerPath passed to forked workers")
	flag.StringVar(&f.builtinExtensionsRoot, "builtin-extensions-root", "./extensions/builtin", "built-in extensions root")
	flag.StringVar(&f.userExtensionsRoot, "user-extensions-root", "./extensions/user", "user-installed extensions root")
	flag.StringVar(&f.appRoot, "app-root", ".", "application root reported to the workbench")
	flag.StringVar(&f.logLevel, "log-level", "info", "initial log level (debug|info|warn|error)")
	flag.DurationVar(&f.handshakeTimeout, "handshake-timeout", 30*time.Second, "bound on auth/connectionType handshake; 0 disables")
	flag.DurationVar(&f.shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for in-flight connections on shutdown")
	flag.IntVar(&f.maxUnackedBytes, "max-unacked-bytes", 4<<20, "outgoing replay buffer cap per session, in bytes")
	flag.Parse()
	return f
}

func buildLogger(level string) (*zap.SugaredLogger, zap.AtomicLevel, error) {
	atomicLevel := zap.NewAtomicLevel()
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, atomicLevel, fmt.Errorf("invalid -log-level %q: %w", level, err)
	}
	atomicLevel.SetLevel(lvl)

	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	base, err := cfg.Build()
	if err != nil {
		return nil, atomicLevel, err
	}
	return base.Sugar(), atomicLevel, nil
}

func readOptional(path string, fallback []byte) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	return data
}

func main() {
	f := parseFlags()
	if f.extensionHostBinary == "" {
		fmt.Fprintln(os.Stderr, "gateway: -extension-host-binary is required")
		os.Exit(1)
	}

	logger, atomicLevel, err := buildLogger(f.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gateway:", err)
		os.Exit(1)
	}
	defer logger.Desugar().Sync() //nolint:errcheck

	configStore := control.NewConfigStore()
	configStore.SetConfig(map[string]any{
		"addr":                f.addr,
		"staticRoot":          f.staticRoot,
		"extensionHostBinary": f.extensionHostBinary,
		"logLevel":            f.logLevel,
		"handshakeTimeout":    f.handshakeTimeout.String(),
	})

	metrics := control.NewMetricsRegistry()
	probes := control.NewDebugProbes()
	bufferPool := pool.Default()
	startedAt := time.Now()
	serviceInfo := api.ServiceInfo{Name: "workbench-gateway", Version: gatewayVersion, StartedAt: startedAt}

	probes.RegisterProbe("bufferPool", func() any { return bufferPool.Stats() })
	probes.RegisterProbe("config", func() any { return configStore.GetSnapshot() })
	probes.RegisterProbe("metrics", func() any { return metrics.GetSnapshot() })
	probes.RegisterProbe("service", func() any { return serviceInfo })
	control.RegisterPlatformProbes(probes)

	manifest := readOptional(f.manifestPath, []byte(`{}`))
	staticHandler, err := httpstatic.NewHandler(httpstatic.Config{
		StaticRoot:    f.staticRoot,
		WorkbenchHTML: f.workbenchHTML,
		WelcomeBanner: f.welcomeBanner,
		ManifestJSON:  manifest,
		FaviconPath:   f.faviconPath,
	})
	if err != nil {
		logger.Fatalw("failed to load workbench template", "error", err)
	}

	b := broker.NewBroker(
		broker.WithLogger(logger),
		broker.WithExtensionHostBinary(f.extensionHostBinary),
		broker.WithURITransformer(f.uriTransformerPath),
		broker.WithLogLevel(f.logLevel),
		broker.WithHandshakeTimeout(f.handshakeTimeout),
		broker.WithMaxUnackedBytes(f.maxUnackedBytes),
	)

	dispatcher := rpc.NewDispatcher()
	envChannel := rpc.NewEnvironmentChannel(f.appRoot, f.builtinExtensionsRoot, f.userExtensionsRoot)
	extensionsChannel := rpc.NewExtensionsChannel(rpc.NewDirExtensionManager(f.userExtensionsRoot))
	extensionsChannel.SetOnChange(envChannel.InvalidateAll)

	dispatcher.RegisterChannel("logLevel", rpc.NewLogLevelChannel(atomicLevel, logger))
	dispatcher.RegisterChannel("logger", rpc.NewLogLevelChannel(atomicLevel, logger))
	dispatcher.RegisterChannel("remoteextensionsenvironment", envChannel)
	dispatcher.RegisterChannel("remotefilesystem", rpc.NewFilesystemChannel())
	dispatcher.RegisterChannel("remoteterminal", rpc.NewTerminalChannel())
	dispatcher.RegisterChannel("extensions", extensionsChannel)
	dispatcher.RegisterChannel("extensionHostDebugBroadcast", rpc.NewDebugBroadcastChannel())

	// Every fresh management-session handshake re-scans rather than
	// ever serving a list cached under a token that didn't exist yet.
	dispatcher.OnSessionAttached(envChannel.InvalidateCache)

	b.OnClientConnected(func(sess *session.ManagementSession) {
		metrics.Increment("managementConnectsTotal", 1)
		metrics.Set("managementSessionsResident", b.ManagementSessionCount())
		dispatcher.HandleClientConnected(sess)
	})
	b.OnExtensionHostStarted(func(sess *session.ExtensionHostSession) {
		metrics.Increment("extensionHostStartsTotal", 1)
		metrics.Set("extensionHostSessionsResident", b.ExtensionHostSessionCount())
	})
	probes.RegisterProbe("apiMetrics", func() any {
		// Inbound/outbound byte counters are not metered at this layer;
		// wsproto would need to report per-send/receive sizes to fill them in.
		snapshot := metrics.GetSnapshot()
		mgmtTotal, _ := snapshot["managementConnectsTotal"].(int64)
		extTotal, _ := snapshot["extensionHostStartsTotal"].(int64)
		return api.APIMetrics{
			NumSessions: b.ManagementSessionCount() + b.ExtensionHostSessionCount(),
			NumMessages: int(mgmtTotal + extTotal),
			StartedAt:   startedAt,
		}
	})

	control.RegisterReloadHook(func() {
		snapshot := configStore.GetSnapshot()
		if level, ok := snapshot["logLevel"].(string); ok {
			var lvl zapcore.Level
			if err := lvl.UnmarshalText([]byte(level)); err == nil {
				atomicLevel.SetLevel(lvl)
				logger.Infow("log level reloaded", "level", level)
			}
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/internal/debug", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(probes.DumpState())
	})
	mux.Handle("/", gatewayHandler(b, staticHandler))

	server := &http.Server{
		Addr:    f.addr,
		Handler: mux,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	go func() {
		for range sigCh {
			logger.Infow("SIGHUP received, triggering hot reload")
			control.TriggerHotReload()
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdownCh
		logger.Infow("shutdown signal received, draining")
		ctx, cancel := context.WithTimeout(context.Background(), f.shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warnw("graceful shutdown timed out", "error", err)
		}
	}()

	logger.Infow("gateway listening", "addr", f.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalw("server exited", "error", err)
	}
	logger.Infow("gateway stopped")
}

// gatewayHandler routes WebSocket upgrade requests to the session
// broker and everything else to the static asset handler, per
// SPEC_FULL.md §6: the upgrade path and the plain HTTP surface share
// one listener but have disjoint handling.
func gatewayHandler(b *broker.Broker, static http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWebSocketUpgrade(r) {
			b.ServeHTTP(w, r)
			return
		}
		static.ServeHTTP(w, r)
	})
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
