package config

const (
	defaultConfigPath           = "~/.config/subextract/config.toml"
	defaultStateDir             = "~/.local/share/subextract"
	defaultStagingDir           = "~/.local/share/subextract/staging"
	defaultInboxDir             = "~/.local/share/subextract/inbox"
	defaultLogDir               = "~/.local/share/subextract/logs"
	defaultSocketPath           = "~/.local/share/subextract/subextract.sock"
	defaultMaxWorkers           = 2
	defaultQueuePollInterval    = 5
	defaultHeartbeatInterval    = 15
	defaultHeartbeatTimeout     = 120
	defaultJobTimeout           = 3600
	defaultIntervalSeconds      = 1.0
	defaultRegionMinWidth       = 20
	defaultRegionMinHeight      = 8
	defaultRegionPadding        = 10
	defaultLineTolerance        = 10
	defaultCueGapSeconds        = 0.05
	defaultMinCueSeconds        = 0.25
	defaultDefaultCueSeconds    = 2.0
	defaultTesseractBinary      = "tesseract"
	defaultOCRWhitelist         = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789.,?!"
	defaultOCRThreshold         = ThresholdAdaptive
	defaultLanguagePolicy       = PolicyKeepOnly
	defaultLanguageTarget       = "en"
	defaultMinConfidence        = 0.7
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultGatewayListen        = "127.0.0.1:7590"
	defaultMaxUploadMB          = 200
	defaultEventBuffer          = 200
	defaultJobRetentionDays     = 7
	defaultStagingMaxAgeHours   = 6
	defaultSweepIntervalMinutes = 30
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Recognized language filter policies.
const (
	PolicyKeepOnly = "keep-only"
	PolicyKeepAll  = "keep-all"
)

// Recognized OCR binarization modes.
const (
	ThresholdAdaptive = "adaptive"
	ThresholdOtsu     = "otsu"
)

var (
	defaultOCRLanguages       = []string{"eng"}
	defaultLanguageCandidates = []string{"en", "es", "fr", "de", "it", "pt", "nl", "ru", "zh", "ja", "ko"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			StagingDir: defaultStagingDir,
			InboxDir:   defaultInboxDir,
			LogDir:     defaultLogDir,
			SocketPath: defaultSocketPath,
		},
		Workflow: Workflow{
			MaxWorkers:        defaultMaxWorkers,
			QueuePollInterval: defaultQueuePollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
			JobTimeout:        defaultJobTimeout,
		},
		Pipeline: Pipeline{
			IntervalSeconds:   defaultIntervalSeconds,
			RegionMinWidth:    defaultRegionMinWidth,
			RegionMinHeight:   defaultRegionMinHeight,
			RegionPadding:     defaultRegionPadding,
			LineTolerance:     defaultLineTolerance,
			CueGapSeconds:     defaultCueGapSeconds,
			MinCueSeconds:     defaultMinCueSeconds,
			DefaultCueSeconds: defaultDefaultCueSeconds,
		},
		OCR: OCR{
			TesseractBinary: defaultTesseractBinary,
			Languages:       append([]string(nil), defaultOCRLanguages...),
			Whitelist:       defaultOCRWhitelist,
			Threshold:       defaultOCRThreshold,
			CloseStrokes:    true,
		},
		Language: Language{
			Policy:        defaultLanguagePolicy,
			Target:        defaultLanguageTarget,
			MinConfidence: defaultMinConfidence,
			Candidates:    append([]string(nil), defaultLanguageCandidates...),
		},
		Media: Media{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Gateway: Gateway{
			Listen:      defaultGatewayListen,
			MaxUploadMB: defaultMaxUploadMB,
			EventBuffer: defaultEventBuffer,
		},
		Retention: Retention{
			JobDays:              defaultJobRetentionDays,
			StagingMaxAgeHours:   defaultStagingMaxAgeHours,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
