// cmd/vallox/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tamzrod/vallox-bridge/internal/config"
	"github.com/tamzrod/vallox-bridge/internal/device"
	"github.com/tamzrod/vallox-bridge/internal/poller"
	"github.com/tamzrod/vallox-bridge/internal/registers"
	"github.com/tamzrod/vallox-bridge/internal/trace"
)

func buildClient(g *globalFlags) (*device.Client, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	_, client, _, err := poller.Build(cfg, logger(), nil)
	return client, err
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newReadCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "read <variable>",
		Short: "Read one variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient(g)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			v, ok := client.ReadSingle(ctx, args[0])
			if !ok {
				return fmt.Errorf("read %s failed", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\n", args[0], v)
			return nil
		},
	}
}

func newReadAllCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "readall",
		Short: "Read every variable and print the snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := buildClient(g)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			snap, err := client.ReadAll(ctx)
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func newWriteCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write <variable> <value>",
		Short: "Write one variable",
		Long:  "Write one variable. Integers are passed as numbers; bit variables accept true/false, on/off or 1/0.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient(g)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			if !client.Write(ctx, args[0], parseValue(args[1])) {
				return fmt.Errorf("write %s=%s failed", args[0], args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s ok\n", args[0], args[1])
			return nil
		},
	}
}

func newRegistersCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "registers",
		Short: "List the register table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := config.DeviceConfig{}
			if g.config != "" {
				cfg, err := config.Load(g.config)
				if err != nil {
					return err
				}
				d = cfg.Device
			}
			table, err := config.Table(d)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tID\tTYPE\tBIT\tWRITABLE")
			for _, def := range table.All() {
				bit := "-"
				if def.Type == registers.Bit {
					bit = strconv.Itoa(int(def.Bit))
				}
				fmt.Fprintf(tw, "%s\t0x%02X\t%s\t%s\t%v\n", def.Name, def.ID, def.Type, bit, def.Writable)
			}
			return tw.Flush()
		},
	}
}

func newTraceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace <file>",
		Short: "Print a recorded telegram trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			// a trace cut off by a kill ends in a partial event
			events, err := trace.ReadAll(f)
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = nil
			}
			out := cmd.OutOrStdout()
			for _, e := range events {
				fmt.Fprintf(out, "%s %-13s reg=0x%02X % X\n",
					e.At.Format("15:04:05.000"), e.Kind, e.Register, e.Frame)
			}
			return err
		},
	}
}

// parseValue keeps non-numeric input as a string for bit tokens.
func parseValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func printSnapshot(w io.Writer, snap device.Snapshot) {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s=%v\n", k, snap[k])
	}
}
