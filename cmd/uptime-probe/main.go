// ABOUTME: One-shot probe of the uptime service
// ABOUTME: Fetches the start date and uptime once and prints the derived clock and date
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/anymaplay/uptime-go/internal/client"
	"github.com/anymaplay/uptime-go/internal/timeutil"
	"github.com/charmbracelet/log"
)

var (
	baseURL = flag.String("base-url", client.DefaultBaseURL, "Uptime service base URL")
	retries = flag.Int("retries", client.DefaultMaxRetries, "Retries after the first attempt (negative disables retrying)")
	timeout = flag.Duration("timeout", 30*time.Second, "Overall deadline for the probe")
	verbose = flag.Bool("v", false, "Log each attempt to stderr")
)

func main() {
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(true)
	log.SetLevel(log.WarnLevel)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	fmt.Println("=== Uptime Probe ===")
	fmt.Printf("Service: %s\n", *baseURL)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(client.Config{
		BaseURL:    *baseURL,
		MaxRetries: *retries,
	})

	start := time.Now()
	seconds, err := c.Uptime(ctx)
	if err != nil {
		kind := client.KindOf(err)
		fmt.Fprintf(os.Stderr, "probe failed (%s): %v\n", kind, err)
		os.Exit(exitCode(kind))
	}

	epoch, err := c.StartDate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(exitCode(client.KindOf(err)))
	}
	date, err := c.CurrentDate(seconds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(exitCode(client.KindOf(err)))
	}

	p := timeutil.Decompose(seconds)
	fmt.Printf("Start date: %s\n", timeutil.FormatDate(epoch))
	fmt.Printf("Uptime:     %d days %s (%d s)\n", p.Days, p.Clock(), seconds)
	fmt.Printf("Now:        %s\n", timeutil.FormatDate(date))
	fmt.Printf("Fetched in: %s\n", time.Since(start).Round(time.Millisecond))
}

// exitCode maps a failure kind to a distinct process exit status
func exitCode(kind client.Kind) int {
	switch kind {
	case client.KindNetwork:
		return 2
	case client.KindAPI:
		return 3
	case client.KindData:
		return 4
	default:
		return 1
	}
}
