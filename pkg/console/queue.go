package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/agrione/offline-sync/pkg/root"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	pushType    string
	pushPayload string
)

// withApp runs fn against a bootstrapped App and closes it afterwards.
// Close waits for any background pass started by fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App, out io.Writer) error) error {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing connections")
		}
	}()
	return fn(ctx, app, cmd.OutOrStdout())
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var pushCmd = &cobra.Command{
	Use:   "queue:push",
	Short: "Queue an action for delivery",
	Example: `  agrione-sync queue:push --type set-price-alert --payload '{"commodity":"Maize","threshold":2500}'
  agrione-sync queue:push --type save-favorite --payload '{"productId":"p-42"}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !json.Valid([]byte(pushPayload)) {
			return fmt.Errorf("--payload is not valid JSON")
		}
		return withApp(cmd, func(ctx context.Context, app *App, out io.Writer) error {
			known := false
			for _, t := range app.Registry.Types() {
				known = known || t == pushType
			}
			if !known {
				return fmt.Errorf("unknown action type %q (known: %v)", pushType, app.Registry.Types())
			}
			id := app.Service.EnqueueRaw(ctx, pushType, json.RawMessage(pushPayload))
			_, err := fmt.Fprintln(out, id)
			return err
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "queue:list",
	Short: "Print queued actions in delivery order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App, out io.Writer) error {
			return printJSON(out, app.Service.Actions())
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "queue:remove <id>",
	Short: "Discard a queued action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App, out io.Writer) error {
			app.Service.RemoveFromQueue(ctx, args[0])
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "queue:clear",
	Short: "Discard every queued action",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App, out io.Writer) error {
			app.Service.ClearQueue(ctx)
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "queue:sync",
	Short: "Run one sync pass now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App, out io.Writer) error {
			return printJSON(out, app.Service.SyncAll(ctx))
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "queue:status",
	Short: "Print connectivity and queue length",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *App, out io.Writer) error {
			return printJSON(out, app.Service.Status())
		})
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushType, "type", "", "Action type, e.g. set-price-alert")
	pushCmd.Flags().StringVar(&pushPayload, "payload", "{}", "Action payload as JSON")
	_ = pushCmd.MarkFlagRequired("type")

	root.GetRoot().AddCommand(pushCmd, listCmd, removeCmd, clearCmd, syncCmd, statusCmd)
}
