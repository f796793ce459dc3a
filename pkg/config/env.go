package config

// EnvPrefix scopes every environment variable the service reads.
const EnvPrefix = "LITEFOREST"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv                 = "LITEFOREST_APP_ENV"
	EnvPort                   = "LITEFOREST_APP_PORT"
	EnvDBDSN                  = "LITEFOREST_DB_DSN"
	EnvDBHost                 = "LITEFOREST_DB_HOST"
	EnvDBUser                 = "LITEFOREST_DB_USER"
	EnvDBName                 = "LITEFOREST_DB_NAME"
	EnvRedisURL               = "LITEFOREST_REDIS_URL"
	EnvJWTSecret              = "LITEFOREST_JWT_SECRET"
	EnvJWTIssuer              = "LITEFOREST_JWT_ISSUER"
	EnvJWTExpMins             = "LITEFOREST_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "LITEFOREST_REFRESH_TOKEN_TTL_MINUTES"
	EnvS3Endpoint             = "LITEFOREST_S3_ENDPOINT"
	EnvS3AccessKey            = "LITEFOREST_S3_ACCESS_KEY"
	EnvS3SecretKey            = "LITEFOREST_S3_SECRET_KEY"
	EnvS3Bucket               = "LITEFOREST_S3_BUCKET"
	EnvS3PublicBaseURL        = "LITEFOREST_S3_PUBLIC_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
