// Command demo runs a standalone swifter server with routes that exercise
// every response mode of the connection core, plus the ops sidecar and
// metrics listener.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lookback/swifter/api/opsserver"
	"github.com/lookback/swifter/common"
	"github.com/lookback/swifter/request"
	"github.com/lookback/swifter/response"
	"github.com/lookback/swifter/router"
	"github.com/lookback/swifter/server"
)

type demoConfig struct {
	Port        uint16 `yaml:"port"`
	ForceIPv4   bool   `yaml:"force_ipv4"`
	Priority    string `yaml:"priority"`
	OpsAddr     string `yaml:"ops_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	EnablePprof bool   `yaml:"enable_pprof"`
	LogJSON     bool   `yaml:"log_json"`
	LogDebug    bool   `yaml:"log_debug"`
	ServeFile   string `yaml:"serve_file"`
}

func defaultConfig() demoConfig {
	return demoConfig{
		Port:     server.DefaultPort,
		Priority: "normal",
		OpsAddr:  ":8090",
	}
}

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file (flags override)")
		port        = flag.Uint("port", uint(server.DefaultPort), "port to serve HTTP on")
		ipv4        = flag.Bool("ipv4", false, "restrict the listener to IPv4")
		priority    = flag.String("priority", "normal", "worker priority: low, normal, high")
		opsAddr     = flag.String("ops-addr", ":8090", "ops sidecar listen address (empty disables)")
		metricsAddr = flag.String("metrics-addr", "", "metrics listen address (empty disables)")
		enablePprof = flag.Bool("pprof", false, "enable the pprof API on the ops sidecar")
		logJSON     = flag.Bool("log-json", false, "log in JSON format")
		logDebug    = flag.Bool("log-debug", false, "log at debug level")
		serveFile   = flag.String("serve-file", "", "file served at GET /file")
	)
	flag.Parse()

	cfg := defaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			fmt.Printf("Config error: %v\n", err)
			os.Exit(1)
		}
	}

	// Command-line flags override config file values.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = uint16(*port)
		case "ipv4":
			cfg.ForceIPv4 = *ipv4
		case "priority":
			cfg.Priority = *priority
		case "ops-addr":
			cfg.OpsAddr = *opsAddr
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "pprof":
			cfg.EnablePprof = *enablePprof
		case "log-json":
			cfg.LogJSON = *logJSON
		case "log-debug":
			cfg.LogDebug = *logDebug
		case "serve-file":
			cfg.ServeFile = *serveFile
		}
	})

	prio, err := parsePriority(cfg.Priority)
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	log := common.SetupLogger(cfg.LogJSON, cfg.LogDebug)

	var srv *server.Server
	mux := router.New()

	mux.Get("/hello", func(*request.Request) *response.Response {
		return response.NewText(http.StatusOK, "Hello from swifter!\n")
	})

	mux.Get("/greet/{name}", func(req *request.Request) *response.Response {
		return response.NewText(http.StatusOK, "Hello, "+req.Params["name"]+"!\n")
	})

	mux.Get("/info", func(*request.Request) *response.Response {
		return response.NewJSON(http.StatusOK, map[string]string{
			"service": common.PackageName,
			"version": common.Version,
			"state":   srv.State().String(),
		})
	})

	if cfg.ServeFile != "" {
		path := cfg.ServeFile
		mux.Get("/file", func(*request.Request) *response.Response {
			f, err := os.Open(path)
			if err != nil {
				return response.NewText(http.StatusNotFound, "file not found\n")
			}
			resp, err := response.NewFile(http.StatusOK, "application/octet-stream", f)
			if err != nil {
				f.Close()
				return response.NewText(http.StatusInternalServerError, "file stat failed\n")
			}
			return resp
		})
	}

	mux.Get("/stream", func(*request.Request) *response.Response {
		return response.NewStream(http.StatusOK, func(s response.Sink) error {
			for i := 1; i <= 5; i++ {
				if _, err := fmt.Fprintf(s, "tick %d\n", i); err != nil {
					return err
				}
				time.Sleep(200 * time.Millisecond)
			}
			return nil
		})
	})

	mux.Get("/echo", func(*request.Request) *response.Response {
		resp := response.NewSession(http.StatusSwitchingProtocols, echoSession)
		resp.AddHeader("Upgrade", "echo")
		resp.AddHeader("Connection", "Upgrade")
		return resp
	})

	srv = server.New(server.Config{
		Port:      cfg.Port,
		ForceIPv4: cfg.ForceIPv4,
		Priority:  prio,
		Parser:    request.NewParser(),
		Router:    mux,
		Log:       log,
	})

	if err := srv.Start(); err != nil {
		log.Error("Server start failed", "err", err)
		os.Exit(1)
	}

	var ops *opsserver.Server
	if cfg.OpsAddr != "" {
		ops, err = opsserver.New(&opsserver.Config{
			ListenAddr:               cfg.OpsAddr,
			MetricsAddr:              cfg.MetricsAddr,
			EnablePprof:              cfg.EnablePprof,
			EnableCORS:               true,
			Log:                      log,
			DrainDuration:            5 * time.Second,
			GracefulShutdownDuration: 10 * time.Second,
			ReadTimeout:              5 * time.Second,
			WriteTimeout:             10 * time.Second,
		}, srv)
		if err != nil {
			log.Error("Ops server setup failed", "err", err)
			srv.Stop()
			os.Exit(1)
		}
		ops.RunInBackground()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	srv.Stop()
	if ops != nil {
		ops.Shutdown()
	}
}

func parsePriority(s string) (server.Priority, error) {
	switch s {
	case "low":
		return server.PriorityLow, nil
	case "", "normal":
		return server.PriorityNormal, nil
	case "high":
		return server.PriorityHigh, nil
	}
	return server.PriorityNormal, fmt.Errorf("unknown priority %q", s)
}

// echoSession takes exclusive control of the upgraded connection and
// mirrors every byte back until the peer goes away.
func echoSession(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		if _, err := conn.Write(buf[:n]); err != nil {
			return
		}
	}
}
