package config

import (
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
	Materialize MaterializeConfig `yaml:"materialize"`
	Google      GoogleConfig      `yaml:"google"`
	Storage     StorageConfig     `yaml:"storage"`
	Vision      VisionConfig      `yaml:"vision"`
	Speech      SpeechConfig      `yaml:"speech"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// MaterializeConfig controls translation and audio materialization.
type MaterializeConfig struct {
	PivotLanguage     string        `yaml:"pivot_language"     env:"MATERIALIZE_PIVOT_LANGUAGE"     env-default:"en"`
	BulkConcurrency   int           `yaml:"bulk_concurrency"   env:"MATERIALIZE_BULK_CONCURRENCY"   env-default:"8"`
	TranslateTimeout  time.Duration `yaml:"translate_timeout"  env:"MATERIALIZE_TRANSLATE_TIMEOUT"  env-default:"10s"`
	SynthesizeTimeout time.Duration `yaml:"synthesize_timeout" env:"MATERIALIZE_SYNTHESIZE_TIMEOUT" env-default:"15s"`
	UploadTimeout     time.Duration `yaml:"upload_timeout"     env:"MATERIALIZE_UPLOAD_TIMEOUT"     env-default:"30s"`
	RecognizeTimeout  time.Duration `yaml:"recognize_timeout"  env:"MATERIALIZE_RECOGNIZE_TIMEOUT"  env-default:"15s"`
	SpeechTimeout     time.Duration `yaml:"speech_timeout"     env:"MATERIALIZE_SPEECH_TIMEOUT"     env-default:"30s"`
	// StagingDir holds synthesized audio until it is uploaded. Empty means os.TempDir().
	StagingDir     string `yaml:"staging_dir"      env:"MATERIALIZE_STAGING_DIR"`
	AudioKeyPrefix string `yaml:"audio_key_prefix" env:"MATERIALIZE_AUDIO_KEY_PREFIX" env-default:"words"`
}

// GoogleConfig holds Google Cloud credentials shared by all GCP clients.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"  env:"GOOGLE_APPLICATION_CREDENTIALS"`
	CredentialsJSON string `yaml:"credentials_json"  env:"GOOGLE_APPLICATION_CREDENTIALS_JSON"`
	TranslateAPIKey string `yaml:"translate_api_key" env:"GOOGLE_TRANSLATE_API_KEY"`
}

// StorageConfig holds object storage settings for synthesized audio.
type StorageConfig struct {
	Bucket        string `yaml:"bucket"          env:"STORAGE_BUCKET"          env-required:"true"`
	PublicBaseURL string `yaml:"public_base_url" env:"STORAGE_PUBLIC_BASE_URL" env-default:"https://storage.googleapis.com"`
}

// VisionConfig holds image label detection settings.
type VisionConfig struct {
	MaxLabels        int    `yaml:"max_labels"     env:"VISION_MAX_LABELS"     env-default:"5"`
	IgnoredLabelsRaw string `yaml:"ignored_labels" env:"VISION_IGNORED_LABELS" env-default:"no person"`
}

// SpeechConfig holds speech recognition settings for pronunciation checks.
type SpeechConfig struct {
	SampleRateHertz int `yaml:"sample_rate_hertz" env:"SPEECH_SAMPLE_RATE_HERTZ" env-default:"16000"`
}

// IgnoredLabels returns the comma-separated ignored labels, trimmed and lowercased.
func (c VisionConfig) IgnoredLabels() []string {
	var labels []string
	for _, p := range strings.Split(c.IgnoredLabelsRaw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}
