package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/frahmantamala/finsolve-gateway/internal/auth"
	"github.com/frahmantamala/finsolve-gateway/internal/chat"
	"github.com/frahmantamala/finsolve-gateway/internal/upstream"
	"github.com/frahmantamala/finsolve-gateway/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	askUsername string
	askModel    string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant one question from the terminal",
	Long: `Authenticate against the authentication service and ask one question
through the same role checks the web gateway applies. The password is read
from FINSOLVE_PASSWORD.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runAsk(ctx, cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVarP(&askUsername, "username", "u", "", "username to authenticate as")
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "model id, defaults to the configured model")
	_ = askCmd.MarkFlagRequired("username")
}

func runAsk(ctx context.Context, out io.Writer, question string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(cfg)
	lg := logger.LoggerWrapper()

	authClient := upstream.NewClient(upstream.Config{Name: "auth", BaseURL: cfg.Upstream.AuthURL, Timeout: cfg.Upstream.RequestTimeout}, lg)
	identity, err := auth.NewService(authClient, lg).Authenticate(ctx, auth.LoginDTO{
		Username: askUsername,
		Password: os.Getenv("FINSOLVE_PASSWORD"),
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	identity.ID = uuid.NewString()

	answeringClient := upstream.NewClient(upstream.Config{Name: "answering", BaseURL: cfg.Upstream.AnsweringURL, Timeout: cfg.Upstream.ChatTimeout}, lg)
	gateway := chat.NewGateway(answeringClient, nil, nil, lg, chat.WithDefaultModel(cfg.Upstream.DefaultModel))

	reply, err := gateway.Ask(ctx, identity, question, askModel)
	if reply.Text == "" {
		return err
	}
	fmt.Fprintf(out, "[%s] %s\n", identity.Role.DisplayName(), reply.Text)
	for _, src := range reply.Sources {
		fmt.Fprintf(out, "  - %s (%s)\n", src.Title, src.Category)
	}
	return err
}
