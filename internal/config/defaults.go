package config

var defaults = map[string]any{
	"secret":    "",
	"log_level": "info",

	"listen":   ":8080",
	"base_url": "/",

	"rsvp_token_ttl":  7 * 24, // 7 days
	"auth_token_ttl":  8 * 24, // 8 days
	"rsvp_rate_limit": 30,

	"default_calendar_name":      "My Calendar",
	"max_occurrences_per_series": 5000,

	"email.host":     "host.docker.internal",
	"email.port":     25,
	"email.username": "",
	"email.password": "",
	"email.from":     "noreply@example.com",

	"storage.type":        "sqlite",
	"storage.sqlite.path": "./data/storage.db",
}

func Defaults() map[string]any {
	values := make(map[string]any)
	for k, v := range defaults {
		values[k] = v
	}
	return values
}
