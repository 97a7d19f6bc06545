package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/config"
	"github.com/cojourney/cjagent/internal/provider"
	"github.com/cojourney/cjagent/internal/store"
	"github.com/spf13/cobra"
)

type checkStatus string

const (
	checkPass checkStatus = "PASS"
	checkWarn checkStatus = "WARN"
	checkFail checkStatus = "FAIL"
)

type doctorCheck struct {
	Name    string
	Status  checkStatus
	Message string
}

var doctorTimeout time.Duration

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run config and setup diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		checks := runDoctor(cmd.Context(), cfg, doctorTimeout)
		return printChecks(cmd.OutOrStdout(), checks)
	},
}

func init() {
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 10*time.Second, "Per-check network timeout")
}

func runDoctor(ctx context.Context, cfg *config.Config, timeout time.Duration) []doctorCheck {
	if ctx == nil {
		ctx = context.Background()
	}
	var checks []doctorCheck

	if p, err := config.ConfigPath(); err != nil {
		checks = append(checks, doctorCheck{"config_file", checkWarn, err.Error()})
	} else if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		checks = append(checks, doctorCheck{"config_file", checkWarn, p + " not found, using defaults and environment"})
	} else {
		checks = append(checks, doctorCheck{"config_file", checkPass, p})
	}

	checks = append(checks, checkStore(cfg))

	provID, model := provider.ParseModelString(cfg.Model.Name)
	key := cfg.Providers.OpenAI.APIKey
	if provID == "gemini" {
		key = cfg.Providers.Gemini.APIKey
	}
	if provID == "" {
		provID = "openai"
	}
	if key == "" {
		checks = append(checks, doctorCheck{"provider", checkFail, fmt.Sprintf("no API key for %s (model %s)", provID, model)})
	} else {
		checks = append(checks, doctorCheck{"provider", checkPass, fmt.Sprintf("%s/%s", provID, model)})
	}

	if cfg.Gateway.JWTSecret == "" {
		checks = append(checks, doctorCheck{"gateway_auth", checkWarn, "jwtSecret unset, bearer tokens are not verified"})
	} else {
		checks = append(checks, doctorCheck{"gateway_auth", checkPass, "HS256 verification enabled"})
	}

	if cfg.Audit.KafkaBrokers == "" {
		checks = append(checks, doctorCheck{"audit_kafka", checkPass, "disabled"})
	} else if n, err := audit.CheckKafka(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, timeout); err != nil {
		checks = append(checks, doctorCheck{"audit_kafka", checkFail, err.Error()})
	} else {
		checks = append(checks, doctorCheck{"audit_kafka", checkPass, fmt.Sprintf("topic %s has %d partition(s)", cfg.Audit.KafkaTopic, n)})
	}
	return checks
}

func checkStore(cfg *config.Config) doctorCheck {
	path, err := storePath(cfg.Paths.StorePath)
	if err != nil {
		return doctorCheck{"store", checkFail, err.Error()}
	}
	db, err := store.Open(path)
	if err != nil {
		return doctorCheck{"store", checkFail, err.Error()}
	}
	_ = db.Close()
	return doctorCheck{"store", checkPass, path}
}

func printChecks(w io.Writer, checks []doctorCheck) error {
	failures := 0
	for _, c := range checks {
		if c.Status == checkFail {
			failures++
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", c.Status, c.Name, c.Message)
	}
	if failures > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", failures)
	}
	return nil
}
