// Command cli drives the migration API: log in, export a community to a
// bundle file, or import a bundle file into the target platform.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/loreline/loreline/internal/bundle"
	"github.com/loreline/loreline/internal/config"
	"github.com/loreline/loreline/internal/logger"
	"github.com/loreline/loreline/internal/version"
)

type cliOptions struct {
	configPath  string
	username    string
	password    string
	timeout     time.Duration
	apiBaseURL  string
	jwtToken    string
	exportID    string
	outputPath  string
	importPath  string
	filter      string
	policy      string
	showVersion bool
}

func main() {
	opts := parseFlags()
	if opts.showVersion {
		fmt.Printf("Loreline migration CLI %s\n", version.GetInfo())
		return
	}
	ctx := context.Background()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	if strings.TrimSpace(opts.apiBaseURL) == "" {
		opts.apiBaseURL = defaultAPIBaseURL(cfg.Server.Addr)
	}
	opts.apiBaseURL = strings.TrimRight(opts.apiBaseURL, "/")

	client := &http.Client{Timeout: opts.timeout}
	jwtToken := strings.TrimSpace(opts.jwtToken)
	if jwtToken == "" {
		username, password := opts.username, opts.password
		if username == "" {
			username = cfg.Admin.Username
		}
		if password == "" {
			password = cfg.Admin.Password
		}
		jwtToken, err = login(ctx, client, opts.apiBaseURL, username, password)
		if err != nil {
			logger.Error("login failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	switch {
	case opts.exportID != "":
		err = runExport(ctx, client, opts, jwtToken)
	case opts.importPath != "":
		err = runImport(ctx, client, opts, jwtToken)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func parseFlags() cliOptions {
	var opts cliOptions
	defaultConfig := os.Getenv("CONFIG_PATH")
	if strings.TrimSpace(defaultConfig) == "" {
		defaultConfig = config.DefaultConfigPath
	}

	flag.StringVar(&opts.configPath, "config", defaultConfig, "Path to config.toml")
	flag.StringVar(&opts.username, "username", "", "Operator username (defaults to config)")
	flag.StringVar(&opts.password, "password", "", "Operator password (defaults to config)")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Minute, "HTTP timeout")
	flag.StringVar(&opts.apiBaseURL, "api", "", "Migration API base URL")
	flag.StringVar(&opts.jwtToken, "token", "", "JWT token (skips login)")
	flag.StringVar(&opts.exportID, "export", "", "Community id to export")
	flag.StringVar(&opts.outputPath, "o", "", "Bundle output path (default <community id>.json)")
	flag.StringVar(&opts.importPath, "import", "", "Bundle file to import")
	flag.StringVar(&opts.filter, "filter", "", "Optional full-text message filter for export")
	flag.StringVar(&opts.policy, "reimport-policy", "", "Re-import policy override: duplicate or update")
	flag.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	flag.Parse()
	return opts
}

func defaultAPIBaseURL(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	if addr == "" {
		return "http://127.0.0.1:8080"
	}
	return "http://" + addr
}

func login(ctx context.Context, client *http.Client, baseURL, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: %s", readError(resp.Body))
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func runExport(ctx context.Context, client *http.Client, opts cliOptions, token string) error {
	url := fmt.Sprintf("%s/migration/communities/%s/export", opts.apiBaseURL, opts.exportID)
	if opts.filter != "" {
		url += "?filter=" + opts.filter
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("export: %s", readError(resp.Body))
	}

	b, err := bundle.Decode(resp.Body)
	if err != nil {
		return err
	}
	outputPath := opts.outputPath
	if outputPath == "" {
		outputPath = opts.exportID + ".json"
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := bundle.Encode(file, b); err != nil {
		return err
	}
	fmt.Printf("Exported community %s (%d members) to %s\n", b.Community.Name, len(b.Members), outputPath)
	return nil
}

func runImport(ctx context.Context, client *http.Client, opts cliOptions, token string) error {
	file, err := os.Open(opts.importPath)
	if err != nil {
		return err
	}
	defer file.Close()
	b, err := bundle.Decode(file)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"bundle":         b,
		"reimportPolicy": opts.policy,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.apiBaseURL+"/migration/import", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("import: %s", readError(resp.Body))
	}

	var result struct {
		Success     bool     `json:"success"`
		Message     string   `json:"message"`
		CommunityID string   `json:"communityId"`
		Conflicts   []string `json:"conflicts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	for _, conflict := range result.Conflicts {
		fmt.Fprintf(os.Stderr, "conflict: %s\n", conflict)
	}
	if !result.Success {
		return fmt.Errorf("import failed: %s", result.Message)
	}
	fmt.Printf("%s (community id %s)\n", result.Message, result.CommunityID)
	return nil
}

func readError(r io.Reader) string {
	data, _ := io.ReadAll(r)
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "unexpected response"
	}
	return text
}
