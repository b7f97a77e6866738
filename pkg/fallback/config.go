package fallback

import "os"

// FromEnv builds a client from GEMINI_API_KEY and GEMINI_MODEL. It returns
// nil when no key is configured; callers treat that as "no fallback".
func FromEnv() *Client {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return nil
	}
	return New(key, getEnv("GEMINI_MODEL", defaultModel))
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
