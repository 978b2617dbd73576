package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ProviderCohere = "cohere"
	ProviderGemini = "gemini"
)

type Config struct {
	Port               int           `yaml:"port" env:"PORT" env-default:"8080"`
	GRPCPort           int           `yaml:"grpc_port" env:"GRPC_PORT" env-default:"9090"`
	WorkDir            string        `yaml:"work_dir" env:"WORK_DIR" env-default:"./storage"`
	UploadMaxBytes     int64         `yaml:"upload_max_bytes" env:"UPLOAD_MAX_BYTES" env-default:"51200000"`
	PipelineTimeout    time.Duration `yaml:"pipeline_timeout" env:"PIPELINE_TIMEOUT" env-default:"2h"`
	ResponseIncludeURI bool          `yaml:"response_include_uri" env:"RESPONSE_INCLUDE_URI" env-default:"true"`
	JWTSecret          string        `yaml:"jwt_secret" env:"JWT_SECRET"`

	Log        LogConfig        `yaml:"log" env-prefix:"LOG_"`
	FFmpeg     FFmpegConfig     `yaml:"ffmpeg" env-prefix:"FFMPEG_"`
	GCS        GCSConfig        `yaml:"gcs" env-prefix:"GCS_"`
	Speech     SpeechConfig     `yaml:"speech" env-prefix:"SPEECH_"`
	Summarizer SummarizerConfig `yaml:"summarizer" env-prefix:"SUMMARIZER_"`
	Cohere     CohereConfig     `yaml:"cohere" env-prefix:"COHERE_"`
	Gemini     GeminiConfig     `yaml:"gemini" env-prefix:"GEMINI_"`
	Retry      RetryConfig      `yaml:"retry" env-prefix:"RETRY_"`
	Otel       OtelConfig       `yaml:"otel" env-prefix:"OTEL_"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL" env-default:"info"`
	JSON  bool   `yaml:"json" env:"JSON" env-default:"false"`
}

type FFmpegConfig struct {
	Binary   string        `yaml:"binary" env:"BINARY" env-default:"ffmpeg"`
	Channels int           `yaml:"channels" env:"CHANNELS" env-default:"1"`
	KBPS     int           `yaml:"kbps" env:"KBPS" env-default:"64"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"1h"`
}

type GCSConfig struct {
	ProjectID       string        `yaml:"project_id" env:"PROJECT_ID"`
	Bucket          string        `yaml:"bucket" env:"BUCKET"`
	CredentialsFile string        `yaml:"credentials_file" env:"CREDENTIALS_FILE" env-default:"bucket.json"`
	Prefix          string        `yaml:"prefix" env:"PREFIX" env-default:"audio-files"`
	PublicBaseURL   string        `yaml:"public_base_url" env:"PUBLIC_BASE_URL" env-default:"https://storage.googleapis.com"`
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"30m"`
}

type SpeechConfig struct {
	APIKey          string        `yaml:"api_key" env:"API_KEY"`
	BaseURL         string        `yaml:"base_url" env:"BASE_URL" env-default:"https://speech.googleapis.com"`
	Encoding        string        `yaml:"encoding" env:"ENCODING" env-default:"MP3"`
	SampleRate      int           `yaml:"sample_rate" env:"SAMPLE_RATE" env-default:"16000"`
	Language        string        `yaml:"language" env:"LANGUAGE" env-default:"id-ID"`
	Punctuation     bool          `yaml:"punctuation" env:"PUNCTUATION" env-default:"true"`
	Model           string        `yaml:"model" env:"MODEL" env-default:"latest_long"`
	PollInterval    time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" env-default:"10s"`
	PollMaxAttempts int           `yaml:"poll_max_attempts" env:"POLL_MAX_ATTEMPTS" env-default:"360"`
	PollTimeout     time.Duration `yaml:"poll_timeout" env:"POLL_TIMEOUT" env-default:"1h"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"2m"`
}

type SummarizerConfig struct {
	Provider string        `yaml:"provider" env:"PROVIDER" env-default:"cohere"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"2m"`
}

type CohereConfig struct {
	APIKey         string `yaml:"api_key" env:"API_KEY"`
	BaseURL        string `yaml:"base_url" env:"BASE_URL" env-default:"https://api.cohere.ai"`
	Model          string `yaml:"model" env:"MODEL" env-default:"summarize-xlarge"`
	Length         string `yaml:"length" env:"LENGTH" env-default:"short"`
	Format         string `yaml:"format" env:"FORMAT" env-default:"paragraph"`
	Extractiveness string `yaml:"extractiveness" env:"EXTRACTIVENESS" env-default:"low"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key" env:"API_KEY"`
	Model  string `yaml:"model" env:"MODEL" env-default:"gemini-2.5-flash"`
}

type RetryConfig struct {
	Max             uint64        `yaml:"max" env:"MAX" env-default:"2"`
	InitialInterval time.Duration `yaml:"initial_interval" env:"INITIAL_INTERVAL" env-default:"1s"`
}

type OtelConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED" env-default:"false"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	Insecure bool   `yaml:"insecure" env:"INSECURE" env-default:"false"`
}

// Load reads configuration from the YAML file named by CONFIG_PATH when set,
// otherwise from the environment only. Environment values always win.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.GCS.Bucket == "" {
		return errors.New("GCS_BUCKET is required")
	}
	if c.GCS.CredentialsFile == "" {
		return errors.New("GCS_CREDENTIALS_FILE is required")
	}
	if c.Speech.APIKey == "" {
		return errors.New("SPEECH_API_KEY is required")
	}
	if c.UploadMaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Speech.PollInterval <= 0 {
		return errors.New("SPEECH_POLL_INTERVAL must be positive")
	}
	if c.Speech.PollMaxAttempts <= 0 && c.Speech.PollTimeout <= 0 {
		return errors.New("one of SPEECH_POLL_MAX_ATTEMPTS or SPEECH_POLL_TIMEOUT must bound the poll loop")
	}
	if c.FFmpeg.Channels <= 0 || c.FFmpeg.KBPS <= 0 {
		return errors.New("FFMPEG_CHANNELS and FFMPEG_KBPS must be positive")
	}

	switch c.Summarizer.Provider {
	case ProviderCohere:
		if c.Cohere.APIKey == "" {
			return errors.New("COHERE_API_KEY is required for the cohere summarizer")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini summarizer")
		}
	default:
		return fmt.Errorf("unknown SUMMARIZER_PROVIDER %q", c.Summarizer.Provider)
	}

	if c.Otel.Enabled && c.Otel.Endpoint == "" {
		return errors.New("OTEL_ENDPOINT is required when OTEL_ENABLED is true")
	}
	return nil
}
