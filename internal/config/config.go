package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`

	// Stripe settings
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`

	// GCP settings (Secret Manager holds provider API keys in deployed environments)
	GCPProjectID string `envconfig:"GCP_PROJECT_ID"`

	// AI provider settings. Env keys win over Secret Manager.
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey      string `envconfig:"GOOGLE_GENERATIVE_AI_API_KEY"`
	AIDefaultProvider string `envconfig:"AI_DEFAULT_PROVIDER" default:"google"`

	// AI job worker settings
	AIQueueName         string  `envconfig:"AI_QUEUE_NAME" default:"ai_jobs"`
	AIPollTimeoutSec    int     `envconfig:"AI_POLL_TIMEOUT_SEC" default:"30"`
	AIPollMaxMsg        int     `envconfig:"AI_POLL_MAX_MSG" default:"1"`
	AIRequestTimeoutSec int     `envconfig:"AI_REQUEST_TIMEOUT_SEC" default:"120"`
	AICostPerToken      float64 `envconfig:"AI_COST_PER_TOKEN" default:"0.0001"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
