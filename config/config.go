package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port     string
	MongoURI string
	DBName   string

	JWTSecret string

	// Blob store for cover images; uploads are disabled when the bucket
	// is unset.
	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string

	// OIDC (Keycloak) login; disabled when the issuer is unset.
	OIDCIssuerURL          string
	OIDCClientID           string
	OIDCClientSecret       string
	OIDCRedirectURL        string
	OIDCPostLogoutRedirect string

	// Machine-translation endpoint; book text is stored untranslated in
	// every language when unset.
	TranslateURL string

	MaxUploadMB int64
}

func Load() (*Config, error) {
	maxMB := int64(10)
	if v := getEnv("MAX_UPLOAD_MB", "10"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxMB = n
		}
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		MongoURI:  getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:    getEnv("MONGODB_DB", "library"),
		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),

		S3Bucket:      getEnv("AWS_S3_BUCKET", ""),
		S3Region:      getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		OIDCIssuerURL:          getEnv("OIDC_ISSUER_URL", ""),
		OIDCClientID:           getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret:       getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:        getEnv("OIDC_REDIRECT_URL", ""),
		OIDCPostLogoutRedirect: getEnv("OIDC_POST_LOGOUT_REDIRECT_URL", ""),

		TranslateURL: getEnv("TRANSLATE_URL", ""),

		MaxUploadMB: maxMB,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
