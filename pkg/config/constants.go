package config

const (
	EnvPrefix = "PAYMENTS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "PAYMENTS_APP_ENV"
	EnvPort     = "PAYMENTS_APP_PORT"
	EnvLogLevel = "PAYMENTS_LOG_LEVEL"

	EnvDBDSN  = "PAYMENTS_DB_DSN"
	EnvDBHost = "PAYMENTS_DB_HOST"
	EnvDBUser = "PAYMENTS_DB_USER"
	EnvDBName = "PAYMENTS_DB_NAME"

	EnvRedisURL = "PAYMENTS_REDIS_URL"

	EnvJWTSecret = "PAYMENTS_JWT_SECRET"
	EnvJWTIssuer = "PAYMENTS_JWT_ISSUER"

	EnvGatewayProcessor = "PAYMENTS_GATEWAY_PROCESSOR"
	EnvGatewayTimeout   = "PAYMENTS_GATEWAY_TIMEOUT"

	EnvPayPalClientID     = "PAYMENTS_PAYPAL_CLIENT_ID"
	EnvPayPalClientSecret = "PAYMENTS_PAYPAL_CLIENT_SECRET"
	EnvPayPalEnv          = "PAYMENTS_PAYPAL_ENV"

	EnvSquareAccessToken = "PAYMENTS_SQUARE_ACCESS_TOKEN"
	EnvSquareEnv         = "PAYMENTS_SQUARE_ENV"

	EnvGCPProjectID       = "PAYMENTS_GCP_PROJECT_ID"
	EnvPubSubPaymentTopic = "PAYMENTS_PUBSUB_PAYMENT_EVENTS_TOPIC"
	EnvPubSubAlertsTopic  = "PAYMENTS_PUBSUB_ALERTS_TOPIC"
)

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}
