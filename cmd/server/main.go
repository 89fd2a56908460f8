package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	stt "github.com/agnivade/stt_gateway"
	"github.com/agnivade/stt_gateway/audio"
	"github.com/agnivade/stt_gateway/config"
	"github.com/agnivade/stt_gateway/logger"
	"github.com/agnivade/stt_gateway/providers"
	"github.com/agnivade/stt_gateway/providers/deepgram"
	"github.com/agnivade/stt_gateway/providers/google"
	"github.com/agnivade/stt_gateway/providers/whisper"
)

const engineReadyTimeout = 30 * time.Second

func main() {
	v := config.New()

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "Path to a YAML config file (optional)")
	fs.String("host", "", "Listen host")
	fs.Int("port", 0, "Listen port")
	fs.String("backend", "", "Speech engine backend: whisper, google or deepgram")
	fs.Int("workers", 0, "Worker pool size, 0 starts one goroutine per job")
	fs.Bool("debug", false, "Enable debug logging")
	_ = fs.Parse(os.Args[1:])

	if err := bindFlags(v, fs); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(v, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx, cfg.Engine, log)
	if err != nil {
		log.Fatalw("Failed to load speech engine", "backend", cfg.Engine.Backend, "err", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := stt.New(cfg, engine, audio.NewWAVDecoder(), log, reg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.Stop()
	})

	if err := g.Wait(); err != nil {
		log.Errorw("Server stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}

// bindFlags lets command line flags override the file and the environment,
// but only when they were set explicitly.
func bindFlags(v *viper.Viper, fs *flag.FlagSet) error {
	keys := map[string]string{
		"host":    "gateway.listen_host",
		"port":    "gateway.listen_port",
		"backend": "engine.backend",
		"workers": "worker.count",
		"debug":   "debug",
	}
	for name, key := range keys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("flag %s: %w", name, err)
		}
	}
	return nil
}

// newEngine constructs the configured backend and waits until it is usable.
// The server must not accept sessions before this returns.
func newEngine(ctx context.Context, cfg config.EngineConfig, log *logger.Logger) (providers.Engine, error) {
	var engine providers.Engine

	switch cfg.Backend {
	case config.BackendWhisper:
		engine = whisper.NewEngine(cfg.Whisper.Endpoint, cfg.Whisper.Timeout)
	case config.BackendGoogle:
		var opts []option.ClientOption
		if cfg.Google.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Google.CredentialsFile))
		}
		client, err := speech.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create speech client: %w", err)
		}
		engine = google.NewEngine(client, cfg.Google.Model)
	case config.BackendDeepgram:
		engine = deepgram.NewEngine(cfg.Deepgram.APIKey, cfg.Deepgram.Model)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if p, ok := engine.(providers.Pinger); ok {
		pctx, cancel := context.WithTimeout(ctx, engineReadyTimeout)
		defer cancel()
		if err := p.Ping(pctx); err != nil {
			_ = engine.Close()
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, fmt.Errorf("engine not ready: %w", err)
		}
	}

	log.Infow("Speech engine loaded",
		"backend", engine.Name(),
		"language", cfg.Language,
		"beam_size", cfg.BeamSize,
		"max_concurrent", cfg.MaxConcurrent)
	return engine, nil
}
