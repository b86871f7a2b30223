package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjuct/mini-redis-http/core/config"
	"github.com/zjuct/mini-redis-http/core/service"
	"github.com/zjuct/mini-redis-http/pkg/client"
)

var pingCmd = &cobra.Command{
	Use:   "ping [payload]",
	Short: "Check the server, optionally echoing payload",
	Args:  cobra.MaximumNArgs(1),
	RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
		payload := ""
		if len(args) == 1 {
			payload = args[0]
		}
		reply, err := c.Ping(ctx, payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	}),
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store value under key",
	Args:  cobra.ExactArgs(2),
	RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
		if err := c.Set(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), service.StatusOK)
		return nil
	}),
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of key, or (nil)",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
		value, ok, err := c.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "(nil)")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%q\n", value)
		return nil
	}),
}

var delCmd = &cobra.Command{
	Use:   "del <key>...",
	Short: "Remove keys and print how many existed",
	Args:  cobra.MinimumNArgs(1),
	RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
		n, err := c.Del(ctx, args...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "(integer) %d\n", n)
		return nil
	}),
}

var publishCmd = &cobra.Command{
	Use:   "publish <channel> <message>",
	Short: "Send message on channel and print how many subscribers got it",
	Args:  cobra.ExactArgs(2),
	RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
		n, err := c.Publish(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "(integer) %d\n", n)
		return nil
	}),
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <channel>...",
	Short: "Wait for a message on any of the channels",
	Long: `Wait for the first message published on any of the channels and print it.

With --stream the command stays attached and prints every message until
interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withClient(func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error {
		if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		printMsg := func(msg service.SubscribeResponse) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", msg.Channel, msg.Message)
			return err
		}

		if stream, _ := cmd.Flags().GetBool("stream"); stream {
			err := c.Stream(ctx, args, printMsg)
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msg, err := c.Subscribe(ctx, args...)
		if err != nil {
			return err
		}
		return printMsg(msg)
	}),
}

type clientRunFunc func(ctx context.Context, cmd *cobra.Command, c *client.Client, args []string) error

// withClient resolves the server URL (--server flag, then MINI_REDIS_URL) and
// runs fn with a client bound to a signal-aware context.
func withClient(fn clientRunFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("server")
		if !cmd.Flags().Changed("server") {
			var cfg clientConfig
			if err := config.Load(&cfg); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			url = cfg.URL
		}

		c, err := client.New(strings.TrimSpace(url))
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return fn(ctx, cmd, c, args)
	}
}

func init() {
	for _, cmd := range []*cobra.Command{pingCmd, setCmd, getCmd, delCmd, publishCmd, subscribeCmd} {
		cmd.Flags().StringP("server", "s", "http://localhost:8080", "server URL, overrides MINI_REDIS_URL")
		rootCmd.AddCommand(cmd)
	}

	subscribeCmd.Flags().Bool("stream", false, "print every message until interrupted")
	subscribeCmd.Flags().Duration("timeout", 0, "give up after this long")
}
