package config

type ServiceConfig struct {
	Name        string            `yaml:"name"`
	Environment string            `yaml:"environment"`
	Version     string            `yaml:"version"`
	MercadoPago MercadoPagoConfig `yaml:"mercadopago"`
}

type MercadoPagoConfig struct {
	BaseURL       string `yaml:"base_url"`
	AccessToken   string `yaml:"access_token"`
	WebhookSecret string `yaml:"webhook_secret"`
}
