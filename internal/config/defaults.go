package config

const (
	defaultOutputDir              = "~/audiobooks"
	defaultLogDir                 = "~/.local/share/aaxconv/logs"
	defaultStateDir               = "~/.local/share/aaxconv"
	defaultContainer              = "ogg"
	defaultQuality                = "stereo-voice"
	defaultWorkers                = 4
	defaultFFmpegBinary           = "ffmpeg"
	defaultOpusencBinary          = "opusenc"
	defaultMkvmergeBinary         = "mkvmerge"
	defaultMetadataBaseURL        = "https://api.audnex.us"
	defaultMetadataTimeoutSeconds = 30
	defaultMetadataUserAgent      = "aaxconv/dev"
	defaultPollIntervalMillis     = 100
	defaultProgressIntervalMillis = 1000
	defaultChunkSizeKiB           = 16
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultNotifyTimeoutSeconds   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Encoding: Encoding{
			Container:      defaultContainer,
			Quality:        defaultQuality,
			Workers:        defaultWorkers,
			FFmpegBinary:   defaultFFmpegBinary,
			OpusencBinary:  defaultOpusencBinary,
			MkvmergeBinary: defaultMkvmergeBinary,
		},
		Metadata: Metadata{
			BaseURL:        defaultMetadataBaseURL,
			TimeoutSeconds: defaultMetadataTimeoutSeconds,
			UserAgent:      defaultMetadataUserAgent,
		},
		Workflow: Workflow{
			PollIntervalMillis:     defaultPollIntervalMillis,
			ProgressIntervalMillis: defaultProgressIntervalMillis,
			ChunkSizeKiB:           defaultChunkSizeKiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
	}
}
