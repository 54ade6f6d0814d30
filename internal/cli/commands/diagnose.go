package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/sensortail/pkg/config"
	"github.com/ccollicutt/sensortail/pkg/logging"
	"github.com/ccollicutt/sensortail/pkg/publish"
	"github.com/ccollicutt/sensortail/pkg/tailer"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

const connectivityTimeout = 5 * time.Second

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Log file existence and accessibility
- Whether the last log line parses as T:<temp>,H:<humidity>
- Whether the log lock is held by another process
- Publisher configuration (and connectivity with -v)

Example:
  sensortail diagnose config.yaml
  sensortail diagnose -v config.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check the log file
	result = checkLogFile(cfg)
	results = append(results, result)

	// 4. Check the last line parses
	if result.Status != "error" {
		results = append(results, checkLastLine(ctx, cfg, opts))
	}

	// 5. Check the lock
	results = append(results, checkLock(ctx, cfg)...)

	// 6. Check publishers
	results = append(results, checkPublishers(ctx, cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"sensortail runs without a config file; omit --config to use defaults",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "warning"
		result.Message = "Config file is empty; defaults will be used"
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		case strings.Contains(err.Error(), "toml"):
			result.Suggests = []string{
				"Check TOML syntax - strings must be quoted",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Log path: %s", cfg.LogPath),
		fmt.Sprintf("Listen: %s", cfg.Server.Listen),
		fmt.Sprintf("Publishers: %d", len(cfg.Publishers)),
	}
	return cfg, result
}

func checkLogFile(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Log File: %s", cfg.LogPath),
	}

	info, err := os.Stat(cfg.LogPath)
	switch {
	case os.IsNotExist(err):
		result.Status = "warning"
		result.Message = "File does not exist yet; the default reading will be served"
		result.Suggests = []string{
			"Start the sensor producer, or run 'sensortail simulate' to generate data",
		}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access file: %v", err)
		result.Suggests = []string{"Check file permissions"}
	case info.IsDir():
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
	case info.Size() == 0:
		result.Status = "warning"
		result.Message = "File is empty (0 bytes)"
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
	}
	return result
}

func checkLastLine(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Last Line",
	}

	t := newTailer(cfg, logging.Discard())
	res := t.Refresh(ctx)

	switch res.Status {
	case tailer.StatusOK:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Parsed temperature %.1f, humidity %.1f",
			res.Reading.Temperature, res.Reading.Humidity)
		if opts.Verbose {
			result.Details = []string{fmt.Sprintf("Line: %s", truncate(res.Line, 80))}
		}
	case tailer.StatusSkipped:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Skipped (%s)", res.Reason)
		if res.Line != "" {
			result.Details = []string{fmt.Sprintf("Line: %s", truncate(res.Line, 80))}
		}
		if res.Reason == tailer.ReasonFormatMismatch {
			result.Suggests = []string{"Lines must look like T:25.5,H:62.1"}
		}
	default:
		// A missing file was already reported by checkLogFile.
		if errors.Is(res.Err, tailer.ErrLogNotFound) {
			result.Status = "warning"
			result.Message = "No log to parse yet"
			return result
		}
		result.Status = "error"
		result.Message = fmt.Sprintf("Refresh failed: %v", res.Err)
		if res.Line != "" {
			result.Details = []string{fmt.Sprintf("Line: %s", truncate(res.Line, 80))}
		}
	}
	return result
}

func checkLock(ctx context.Context, cfg *config.Config) []DiagnosticResult {
	if cfg.LockTimeout == 0 {
		return nil
	}

	result := DiagnosticResult{
		Check: fmt.Sprintf("Log Lock: %s", tailer.LockPath(cfg.LogPath)),
	}

	if _, err := os.Stat(tailer.LockPath(cfg.LogPath)); os.IsNotExist(err) {
		result.Status = "ok"
		result.Message = "No lock file; the producer does not use locking"
		return []DiagnosticResult{result}
	}

	lock := flock.New(tailer.LockPath(cfg.LogPath))
	lockCtx, cancel := context.WithTimeout(ctx, cfg.LockTimeout.Std())
	defer cancel()

	ok, err := lock.TryRLockContext(lockCtx, 10*time.Millisecond)
	if err != nil || !ok {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Shared lock not acquired within %s", cfg.LockTimeout)
		result.Suggests = []string{
			"A writer may be holding the lock for too long",
			"Reads fall back to unlocked access when this happens",
		}
		return []DiagnosticResult{result}
	}
	_ = lock.Unlock()

	result.Status = "ok"
	result.Message = "Shared lock acquired"
	return []DiagnosticResult{result}
}

func checkPublishers(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Publishers) == 0 {
		// Publishers are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Publishers",
				Status:  "ok",
				Message: "No publishers configured (optional)",
			})
		}
		return results
	}

	for _, p := range cfg.Publishers {
		result := DiagnosticResult{
			Check:  fmt.Sprintf("Publisher: %s", p.DisplayName()),
			Status: "ok",
		}

		warnings := []string{}
		if p.Type == config.PublisherWebhook && p.Token == "" {
			warnings = append(warnings, "No token set; the webhook is sent unauthenticated")
		}
		if (p.Type == config.PublisherRedis || p.Type == config.PublisherMQTT) && p.Username != "" && p.Password == "" {
			warnings = append(warnings, "Username set without a password (unresolved env var?)")
		}

		if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Message = fmt.Sprintf("Type: %s", p.Type)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("Target: %s", publisherTarget(p)),
					fmt.Sprintf("Timeout: %s", p.Timeout),
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test publisher connectivity
	if opts.Verbose {
		for _, p := range cfg.Publishers {
			result := checkPublisherConnectivity(ctx, p)
			result.Check = fmt.Sprintf("Publisher Connectivity: %s", p.DisplayName())
			results = append(results, result)
		}
	}

	return results
}

func publisherTarget(p config.PublisherConfig) string {
	switch p.Type {
	case config.PublisherWebhook:
		return p.URL
	case config.PublisherRedis:
		return fmt.Sprintf("%s channel %s", p.Addr, p.Channel)
	case config.PublisherMQTT:
		return fmt.Sprintf("%s topic %s", p.Broker, p.Topic)
	case config.PublisherKafka:
		return fmt.Sprintf("%s topic %s", strings.Join(p.Brokers, ","), p.Topic)
	default:
		return ""
	}
}

func checkPublisherConnectivity(ctx context.Context, p config.PublisherConfig) DiagnosticResult {
	ctx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()

	var err error
	switch p.Type {
	case config.PublisherWebhook:
		return checkWebhookConnectivity(ctx, p)
	case config.PublisherRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     p.Addr,
			Username: p.Username,
			Password: p.Password,
			DB:       p.DB,
		})
		err = client.Ping(ctx).Err()
		_ = client.Close()
	case config.PublisherMQTT:
		var pub *publish.MQTTPublisher
		pub, err = publish.NewMQTT(p)
		if err == nil {
			_ = pub.Close()
		}
	case config.PublisherKafka:
		var conn *kafka.Conn
		conn, err = kafka.DialContext(ctx, "tcp", p.Brokers[0])
		if err == nil {
			_ = conn.Close()
		}
	}

	if err != nil {
		return DiagnosticResult{
			Status:  "warning",
			Message: fmt.Sprintf("Cannot connect: %v", err),
			Suggests: []string{
				"Check the address is correct",
				"Verify network connectivity",
			},
		}
	}
	return DiagnosticResult{Status: "ok", Message: "Reachable"}
}

func checkWebhookConnectivity(ctx context.Context, p config.PublisherConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual publish)",
			"Check authentication if using a token",
		}
	}

	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== sensortail Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before starting the server.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
