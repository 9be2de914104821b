package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "api.base_url", typ: kString, env: "ROTOMDEX_API_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.API.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.API.BaseURL },
	},
	{
		key: "api.timeout_seconds", typ: kInt, env: "ROTOMDEX_API_TIMEOUT_SECONDS",
		apply:   func(cfg *Config, v any) { cfg.API.TimeoutSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.API.TimeoutSeconds },
	},
	{
		key: "api.top_n", typ: kInt, env: "ROTOMDEX_API_TOP_N",
		apply:   func(cfg *Config, v any) { cfg.API.TopN = v.(int) },
		extract: func(cfg Config) any { return cfg.API.TopN },
	},
	{
		key: "history.cap", typ: kInt, env: "ROTOMDEX_HISTORY_CAP",
		apply:   func(cfg *Config, v any) { cfg.History.Cap = v.(int) },
		extract: func(cfg Config) any { return cfg.History.Cap },
	},
	{
		key: "history.data_dir", typ: kString, env: "ROTOMDEX_HISTORY_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.History.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.History.DataDir },
	},
	{
		key: "camera.device", typ: kString, env: "ROTOMDEX_CAMERA_DEVICE",
		apply:   func(cfg *Config, v any) { cfg.Camera.Device = v.(string) },
		extract: func(cfg Config) any { return cfg.Camera.Device },
	},
	{
		key: "camera.width", typ: kInt, env: "ROTOMDEX_CAMERA_WIDTH",
		apply:   func(cfg *Config, v any) { cfg.Camera.Width = v.(int) },
		extract: func(cfg Config) any { return cfg.Camera.Width },
	},
	{
		key: "camera.height", typ: kInt, env: "ROTOMDEX_CAMERA_HEIGHT",
		apply:   func(cfg *Config, v any) { cfg.Camera.Height = v.(int) },
		extract: func(cfg Config) any { return cfg.Camera.Height },
	},
	{
		key: "camera.ready_timeout_ms", typ: kInt, env: "ROTOMDEX_CAMERA_READY_TIMEOUT_MS",
		apply:   func(cfg *Config, v any) { cfg.Camera.ReadyTimeoutMS = v.(int) },
		extract: func(cfg Config) any { return cfg.Camera.ReadyTimeoutMS },
	},
	{
		key: "camera.ffmpeg_path", typ: kString, env: "ROTOMDEX_CAMERA_FFMPEG_PATH",
		apply:   func(cfg *Config, v any) { cfg.Camera.FFmpegPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Camera.FFmpegPath },
	},
	{
		key: "log.level", typ: kString, env: "ROTOMDEX_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
