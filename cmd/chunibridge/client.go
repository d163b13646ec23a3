package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chunibridge/chunibridge/bridge"
	"github.com/chunibridge/chunibridge/internal/pool"
)

// openBridge builds a Bridge from flags and config file and establishes the
// session, failing fast when the backend is unreachable.
func openBridge(flags *rootFlags) (*bridge.Bridge, error) {
	opts, err := loadBridgeOptions(flags)
	if err != nil {
		return nil, err
	}

	cfg, err := bridge.NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	b, err := bridge.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	if err := b.Open(true); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("connect to %s: %w", cfg.SocketPath(), err)
	}

	return b, nil
}

func pingCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verify the proxy backend answers a keepalive exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBridge(flags)
			if err != nil {
				return err
			}
			defer b.Close()

			start := time.Now()
			if err := b.Ping(); err != nil {
				return err
			}

			fmt.Printf("pong in %s\n", time.Since(start).Round(time.Microsecond))

			return nil
		},
	}
}

func pollCmd(flags *rootFlags) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Read the operator button and IR beam bits",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBridge(flags)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.JVSInit(); err != nil {
				return err
			}

			for {
				opbtn, beams := b.Poll()
				coins := b.CoinCounter()
				fmt.Printf("opbtn=%08b beams=%08b coins=%d\n", opbtn, beams, coins)

				if !watch {
					return nil
				}

				timer := pool.GetTimer(interval)
				<-timer.C
				pool.PutTimer(timer)
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "poll repeatedly until interrupted")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 100*time.Millisecond, "watch interval")

	return cmd
}

func stateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Read the full device state in one exchange and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBridge(flags)
			if err != nil {
				return err
			}
			defer b.Close()

			if !b.RefreshAll() {
				return fmt.Errorf("full-state read failed")
			}

			opbtn, beams := b.Poll()

			type stateDoc struct {
				OpBtn     uint8  `json:"opbtn"`
				Beams     uint8  `json:"beams"`
				CoinCount uint16 `json:"coin_count"`
				API       string `json:"api_version"`
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(stateDoc{
				OpBtn:     opbtn,
				Beams:     beams,
				CoinCount: b.CoinCounter(),
				API:       fmt.Sprintf("%d.%d", b.GetAPIVersion()>>8, b.GetAPIVersion()&0xFF),
			})
		},
	}
}

func ledsCmd(flags *rootFlags) *cobra.Command {
	var (
		board uint8
		color string
	)

	cmd := &cobra.Command{
		Use:   "leds",
		Short: "Fill an LED board with a solid color",
		Long: `Fill an LED board with a solid color given as an RGB hex triplet,
e.g. "ff8000". Board 2 is the slider LED strip.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rgb, err := hex.DecodeString(color)
			if err != nil || len(rgb) != 3 {
				return fmt.Errorf("invalid color %q, want an RGB hex triplet like ff8000", color)
			}

			size, err := bridge.LEDBoardSize(board)
			if err != nil {
				return err
			}

			b, err := openBridge(flags)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.LEDInit(); err != nil {
				return err
			}

			buf := make([]byte, size)
			for i := 0; i < size; i += 3 {
				copy(buf[i:], rgb)
			}

			if err := b.SetLEDs(board, buf); err != nil {
				return err
			}

			// give the dispatcher a beat to flush before tearing down
			timer := pool.GetTimer(50 * time.Millisecond)
			<-timer.C
			pool.PutTimer(timer)

			fmt.Printf("board %d set to #%s (%d bytes)\n", board, color, size)

			return nil
		},
	}

	cmd.Flags().Uint8VarP(&board, "board", "b", bridge.SliderLEDBoard, "LED board index (0-2)")
	cmd.Flags().StringVarP(&color, "color", "C", "ff0000", "RGB hex triplet")

	return cmd
}
