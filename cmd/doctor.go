package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clementinebot/clementine/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("clementine doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults and environment)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Slack:")
	checkCredential("Bot token", cfg.Slack.BotToken)
	checkCredential("App token", cfg.Slack.AppToken)
	if cfg.Slack.AppToken != "" && !strings.HasPrefix(cfg.Slack.AppToken, "xapp-") {
		fmt.Printf("    %-12s app token does not start with xapp-\n", "WARNING:")
	}

	fmt.Println()
	fmt.Println("  QA service:")
	if cfg.QA.BaseURL == "" {
		fmt.Printf("    %-12s (not configured — set QA_BASE_URL)\n", "Endpoint:")
	} else {
		fmt.Printf("    %-12s %s\n", "Endpoint:", cfg.QA.BaseURL)
	}
	checkCredential("API token", cfg.QA.APIToken)
	fmt.Printf("    %-12s %s\n", "Timeout:", cfg.QATimeout())
	if cfg.ModelOverride != "" {
		fmt.Printf("    %-12s %s\n", "Model:", cfg.ModelOverride)
	}

	fmt.Println()
	fmt.Println("  Context window:")
	fmt.Printf("    %-12s %d..%d messages\n", "Bounds:", cfg.Context.Min, cfg.Context.Max)

	fmt.Println()
	fmt.Println("  Database:")
	checkDatabase(cfg)

	fmt.Println()
	fmt.Println("  Prompts:")
	if cfg.Prompts.Dir == "" {
		fmt.Printf("    %-12s embedded defaults\n", "Source:")
	} else {
		fmt.Printf("    %-12s %s", "Override:", cfg.Prompts.Dir)
		if _, err := os.Stat(cfg.Prompts.Dir); err != nil {
			fmt.Println(" (NOT FOUND)")
		} else {
			fmt.Println(" (OK)")
		}
	}

	fmt.Println()
	fmt.Println("  Tracing:")
	if !cfg.Tracing.Enabled {
		fmt.Printf("    %-12s disabled\n", "Status:")
	} else {
		endpoint := cfg.Tracing.Endpoint
		if endpoint == "" {
			endpoint = "(otlp defaults)"
		}
		fmt.Printf("    %-12s %s via %s\n", "Export:", endpoint, cfg.Tracing.Protocol)
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkDatabase(cfg *config.Config) {
	fmt.Printf("    %-12s %s\n", "Mode:", cfg.Database.Mode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stores, err := openStores(cfg)
	if err != nil {
		fmt.Printf("    %-12s OPEN FAILED (%s)\n", "Status:", err)
		return
	}
	defer stores.Close()

	if cfg.Database.Mode == "sqlite" {
		fmt.Printf("    %-12s %s\n", "Path:", config.ExpandHome(cfg.Database.Path))
	}

	roomCount, err := stores.Rooms.Count(ctx)
	if err != nil {
		fmt.Printf("    %-12s QUERY FAILED (%s)\n", "Status:", err)
		return
	}
	feedbackCount, err := stores.Feedback.Count(ctx)
	if err != nil {
		fmt.Printf("    %-12s QUERY FAILED (%s)\n", "Status:", err)
		return
	}
	fmt.Printf("    %-12s OK\n", "Status:")
	fmt.Printf("    %-12s %d configured\n", "Rooms:", roomCount)
	fmt.Printf("    %-12s %d recorded\n", "Feedback:", feedbackCount)
}

func checkCredential(name, value string) {
	if value == "" {
		fmt.Printf("    %-12s (not configured)\n", name+":")
		return
	}
	fmt.Printf("    %-12s %s\n", name+":", maskToken(value))
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
