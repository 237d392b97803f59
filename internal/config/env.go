package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadEnv loads .env style files from the working directory into the
// process environment. Missing files are skipped.
func LoadEnv(logger logrus.FieldLogger, files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}

	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			logger.WithError(err).Warnf("failed to load %s", file)
			continue
		}
		loaded = append(loaded, file)
	}

	if len(loaded) == 0 {
		logger.Debug("no env files loaded; relying on process environment")
		return
	}
	logger.Debugf("loaded env files: %s", strings.Join(loaded, ", "))
}

// ApplyEnv overlays credentials from the environment onto c. Secrets are kept
// out of the TOML file this way.
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Facebook.PageID, "FACEBOOK_PAGE_ID")
	setFromEnv(&c.Facebook.AccessToken, "FACEBOOK_ACCESS_TOKEN")
	setFromEnv(&c.Twitter.APIKey, "TWITTER_API_KEY")
	setFromEnv(&c.Twitter.APISecret, "TWITTER_API_SECRET")
	setFromEnv(&c.Twitter.AccessToken, "TWITTER_ACCESS_TOKEN")
	setFromEnv(&c.Twitter.AccessTokenSecret, "TWITTER_ACCESS_TOKEN_SECRET")
	setFromEnv(&c.Email.SMTPPass, "SMTP_PASS")

	switch c.Generation.Provider {
	case ProviderGemini:
		setFromEnv(&c.Generation.APIKey, "GEMINI_API_KEY")
	case ProviderAnthropic:
		setFromEnv(&c.Generation.APIKey, "ANTHROPIC_API_KEY")
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// IsPlaceholder reports whether a credential is unset or still holds a
// template value such as "YOUR_FACEBOOK_PAGE_ID".
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.HasPrefix(strings.ToUpper(v), "YOUR_")
}
