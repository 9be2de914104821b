package config

type Config struct {
	API     APIConfig
	History HistoryConfig
	Camera  CameraConfig
	Log     LogConfig
}

type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
	TopN           int
}

type HistoryConfig struct {
	Cap     int
	DataDir string
}

type CameraConfig struct {
	Device         string
	Width          int
	Height         int
	ReadyTimeoutMS int
	FFmpegPath     string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000/api/v1",
			TimeoutSeconds: 60,
			TopN:           3,
		},
		History: HistoryConfig{
			Cap:     6,
			DataDir: dataDir,
		},
		Camera: CameraConfig{
			Width:          1280,
			Height:         720,
			ReadyTimeoutMS: 1500,
			FFmpegPath:     "ffmpeg",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.rotomdex.app).
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/rotomdex/config.json.
//
// Environment variables (ROTOMDEX_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
