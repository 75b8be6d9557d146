package config

const (
	defaultConfigPath             = "~/.config/fragreel/config.toml"
	defaultDataDir                = "~/.local/share/fragreel"
	defaultOutputDir              = "~/Videos/fragreel"
	defaultLogDir                 = "~/.local/share/fragreel/logs"
	defaultDecoderBinary          = "csda"
	defaultDecoderTimeoutSeconds  = 300
	defaultDecoderMaxOutputMiB    = 50
	defaultHeaderWindowBytes      = 1024
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultCaptureBinary          = "hlae"
	defaultRenderTimeoutSeconds   = 600
	defaultAssumedDurationSeconds = 30
	defaultPlaceholderSeconds     = 5
	defaultMaxStderrKiB           = 256
	defaultTemplate               = "clean"
	defaultClipsDirName           = "clips"
	defaultIngestConcurrency      = 2
	defaultAPIBind                = "127.0.0.1:7590"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Environment variables that override the corresponding file settings.
const (
	EnvDecoderBinary = "FRAGREEL_DECODER"
	EnvCaptureBinary = "FRAGREEL_CAPTURE"
	EnvOutputDir     = "FRAGREEL_OUTPUT_DIR"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Decoder: Decoder{
			Binary:            defaultDecoderBinary,
			TimeoutSeconds:    defaultDecoderTimeoutSeconds,
			MaxOutputMiB:      defaultDecoderMaxOutputMiB,
			HeaderWindowBytes: defaultHeaderWindowBytes,
		},
		Render: Render{
			FFmpegBinary:           defaultFFmpegBinary,
			FFprobeBinary:          defaultFFprobeBinary,
			CaptureBinary:          defaultCaptureBinary,
			TimeoutSeconds:         defaultRenderTimeoutSeconds,
			AssumedDurationSeconds: defaultAssumedDurationSeconds,
			PlaceholderSeconds:     defaultPlaceholderSeconds,
			MaxStderrKiB:           defaultMaxStderrKiB,
			DefaultTemplate:        defaultTemplate,
			ClipsDirName:           defaultClipsDirName,
		},
		Highlights: Highlights{
			SniperWeapons: []string{"awp"},
			PistolWeapons: []string{"deagle", "desert eagle"},
		},
		Ingest: Ingest{
			Concurrency: defaultIngestConcurrency,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
