package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

var bannerArt = []string{
	` 888888b.    .d88888b.  888       .d8888b.        d8888`,
	` 888  "88b  d88P" "Y88b 888      d88P  Y88b      d88888`,
	` 888  .88P  888     888 888      Y88b.          d88P888`,
	` 8888888K.  888     888 888       "Y888b.      d88P 888`,
	` 888  "Y88b 888     888 888          "Y88b.   d88P  888`,
	` 888    888 888     888 888            "888  d88P   888`,
	` 888   d88P Y88b. .d88P 888      Y88b  d88P d8888888888`,
	` 8888888P"   "Y88888P"  88888888  "Y8888P" d88P     888`,
}

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	writeBanner(os.Stderr, config)

	logger.Info().
		Str("version", GetVersion()).
		Str("build", GetBuild()).
		Str("commit", GetGitCommit()).
		Str("environment", config.Environment).
		Str("service_url", serviceURL(config)).
		Str("storage", config.Storage.Backend+" "+config.Storage.Location()).
		Str("remote", remoteState(config)).
		Msg("Application started")
}

func writeBanner(w io.Writer, config *Config) {
	const width = 70
	textColor := banner.ColorBold + banner.ColorWhite
	hr := banner.ColorCyan + strings.Repeat("═", width) + banner.ColorReset

	fmt.Fprintf(w, "\n%s\n\n", hr)
	for _, line := range bannerArt {
		fmt.Fprintf(w, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s  Daily Trading Session Data%s\n\n%s\n\n", textColor, banner.ColorReset, hr)

	rows := [][2]string{
		{"Version", GetFullVersion()},
		{"Environment", config.Environment},
		{"Service URL", serviceURL(config)},
		{"Storage", config.Storage.Backend + " " + config.Storage.Location()},
		{"Archive", config.Archive.Dir},
		{"Remote", remoteState(config)},
		{"Record cache", fmt.Sprintf("%d days", config.Cache.RecordCapacity)},
		{"Query cache", fmt.Sprintf("%d entries, ttl %s", config.Cache.QueryCapacity, config.Cache.GetQueryTTL())},
		{"Scheduler", config.Scheduler.GetInterval().String()},
	}
	for _, kv := range rows {
		fmt.Fprintf(w, "%s  %-16s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s\n\n", hr)
}

func serviceURL(config *Config) string {
	return fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
}

func remoteState(config *Config) string {
	if config.Clients.BVC.Disabled {
		return "disabled"
	}
	return config.Clients.BVC.BaseURL
}

// PrintShutdownBanner displays the application shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	hr := banner.ColorCyan + strings.Repeat("═", 42) + banner.ColorReset
	fmt.Fprintf(os.Stderr, "\n%s\n%s  BOLSA: SHUTTING DOWN%s\n%s\n\n",
		hr, banner.ColorBold+banner.ColorWhite, banner.ColorReset, hr)

	logger.Info().Msg("Application shutting down")
}
