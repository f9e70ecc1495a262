package server

import (
	"github.com/caarlos0/env/v11"
)

// Config comes from the environment (and .env at dev time).
// Command-line flags in cmd/spotter override individual fields.
type Config struct {
	Port                int     `env:"PORT"                          envDefault:"5000"`
	InferenceURL        string  `env:"SPOTTER_INFERENCE_URL"         envDefault:"http://localhost:8500"`
	ModelName           string  `env:"SPOTTER_MODEL"                 envDefault:"yolov8m"`
	ConfidenceThreshold float32 `env:"SPOTTER_CONFIDENCE_THRESHOLD"  envDefault:"0.3"`
	MaxKeyframes        int     `env:"SPOTTER_MAX_KEYFRAMES"         envDefault:"10"`
	VideoWorkers        int     `env:"SPOTTER_VIDEO_WORKERS"         envDefault:"4"`

	// The remote inference server is assumed single-flight unless this is set,
	// in which case concurrent DetectObjects calls go out unserialized.
	ModelConcurrent bool `env:"SPOTTER_MODEL_CONCURRENT" envDefault:"false"`

	MaxBodyMB int64 `env:"SPOTTER_MAX_BODY_MB" envDefault:"64"`

	// Requests per minute per IP on the detection endpoints. 0 disables limiting.
	RateLimit int `env:"SPOTTER_RATE_LIMIT" envDefault:"120"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
