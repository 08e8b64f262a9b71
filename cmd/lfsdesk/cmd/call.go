package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brianly1003/lfsdesk/internal/config"
	"github.com/brianly1003/lfsdesk/internal/rpc/client"
	"github.com/brianly1003/lfsdesk/internal/rpc/message"
)

var (
	callURL     string
	callTimeout time.Duration
	callFollow  bool
)

// callCmd sends one request to a running websocket server.
var callCmd = &cobra.Command{
	Use:   "call <method> [params-json]",
	Short: "Call a method on a running lfsdesk websocket server",
	Long: `Send a single JSON-RPC request to a running lfsdesk server and print the result.

With --follow, keep the connection open afterwards and print every
notification (events and deferred completions) until interrupted.

Examples:
  lfsdesk call status/get
  lfsdesk call locks/list
  lfsdesk call locks/acquire '{"path":"art/hero.psd"}'
  lfsdesk call events/subscribeAll --follow`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callURL, "url", "", "websocket URL (default: ws://<server.host>:<server.port>/ws)")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 30*time.Second, "time to wait for the response")
	callCmd.Flags().BoolVar(&callFollow, "follow", false, "print notifications after the response until interrupted")
}

func runCall(cmd *cobra.Command, args []string) error {
	var params interface{}
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("params must be valid JSON: %s", args[1])
		}
		params = json.RawMessage(args[1])
	}

	url := callURL
	if url == "" {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		url = serverURL(cfg)
	}

	c, err := client.NewClient(url)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	callCtx, callCancel := context.WithTimeout(ctx, callTimeout)
	resp, err := c.Call(callCtx, args[0], params)
	callCancel()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if resp.IsError() {
		_ = printJSON(out, resp.Error)
		return fmt.Errorf("%s failed: %s (%s)", args[0], resp.Error.Message, message.ErrorCodeName(resp.Error.Code))
	}
	if err := printJSON(out, resp.Result); err != nil {
		return err
	}

	if !callFollow {
		return nil
	}
	return followNotifications(ctx, out, c.Notifications())
}

// followNotifications prints notifications until ctx ends or the stream closes.
func followNotifications(ctx context.Context, out io.Writer, notes <-chan *message.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notes:
			if !ok {
				return nil
			}
			if err := printJSON(out, n); err != nil {
				return err
			}
		}
	}
}

func serverURL(cfg *config.Config) string {
	return fmt.Sprintf("ws://%s/ws", cfg.Server.Addr())
}

func printJSON(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
