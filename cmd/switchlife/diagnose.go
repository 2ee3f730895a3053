package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/switchlife/internal/hirestimer"
	"github.com/verte-zerg/switchlife/internal/input"
	"github.com/verte-zerg/switchlife/internal/model"
)

var (
	diagIndex    uint32
	diagMethod   string
	diagDuration time.Duration
	diagInterval time.Duration
)

func newDiagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Print raw button mask changes of a controller",
		Args:  cobra.NoArgs,
		RunE:  runDiagnoseCmd,
	}
	cmd.Flags().Uint32Var(&diagIndex, "index", 0, "controller index")
	cmd.Flags().StringVar(&diagMethod, "method", string(model.InputDirectInput), "input method (XInput or DirectInput)")
	cmd.Flags().DurationVar(&diagDuration, "duration", 0, "stop after this long (default: until interrupted)")
	cmd.Flags().DurationVar(&diagInterval, "interval", time.Millisecond, "poll interval")
	return cmd
}

func runDiagnoseCmd(cmd *cobra.Command, _ []string) error {
	method, err := model.ParseInputMethod(diagMethod)
	if err != nil {
		return err
	}
	if diagInterval <= 0 {
		return fmt.Errorf("--interval must be > 0")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if diagDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, diagDuration)
		defer cancel()
	}

	dev := input.NewDynamic(method)
	defer func() {
		if cerr := dev.Close(); cerr != nil {
			logErrf("failed to close input: %v\n", cerr)
		}
	}()
	release := hirestimer.Acquire()
	defer release()

	w := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(w, "Reading controller %d via %s, interrupt to stop\n", diagIndex, method); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	ticker := time.NewTicker(diagInterval)
	defer ticker.Stop()
	start := time.Now()
	var (
		last    uint32
		lastErr string
	)
	first := true
	for {
		mask, err := dev.State(diagIndex)
		elapsed := time.Since(start)
		var line string
		switch {
		case err != nil:
			if first || err.Error() != lastErr {
				line = fmt.Sprintf("%9.3fs  %v", elapsed.Seconds(), err)
			}
			lastErr = err.Error()
			last = 0
		case first || lastErr != "" || mask != last:
			line = describeTransition(elapsed, last, mask)
			lastErr = ""
			last = mask
		}
		first = false
		if line != "" {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// describeTransition formats one mask change with the buttons that went down
// and up, each as the mask value it would be bound with.
func describeTransition(elapsed time.Duration, prev, cur uint32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%9.3fs  %016b  %5d", elapsed.Seconds(), cur, cur)
	if down := bitList(cur &^ prev); down != "" {
		b.WriteString("  down: ")
		b.WriteString(down)
	}
	if up := bitList(prev &^ cur); up != "" {
		b.WriteString("  up: ")
		b.WriteString(up)
	}
	return b.String()
}

func bitList(mask uint32) string {
	var parts []string
	for i := 0; i < 32; i++ {
		if bit := uint32(1) << i; mask&bit != 0 {
			parts = append(parts, strconv.FormatUint(uint64(bit), 10))
		}
	}
	return strings.Join(parts, " ")
}
