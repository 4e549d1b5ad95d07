package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/weft-dev/weft/internal/config"
	"github.com/weft-dev/weft/internal/devtools"
)

func inspectCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Attach to a running inspector feed",
		Long: `Inspect connects to the websocket feed a "weft bench --listen" run
(or any host embedding the devtools server) exposes and prints one
line per reconciliation pass until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Inspector.Addr
			}

			url := fmt.Sprintf("ws://%s/inspect", addr)
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", url, err)
			}
			defer conn.Close()

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			go func() {
				<-interrupt
				conn.Close()
			}()

			out := cmd.OutOrStdout()
			for {
				var ev devtools.Event
				if err := conn.ReadJSON(&ev); err != nil {
					// Closed by the interrupt handler or the remote end.
					return nil
				}
				if asJSON {
					data, _ := json.Marshal(ev)
					fmt.Fprintln(out, string(data))
					continue
				}
				switch ev.Type {
				case "hello":
					success("attached to %s as %s", addr, ev.ClientID)
				case "pass":
					if ev.Pass != nil {
						fmt.Fprintln(out, ev.Pass.String())
					}
				}
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to weft.json")
	cmd.Flags().StringVar(&addr, "addr", "", "Inspector address (empty uses weft.json's inspector.addr)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw event JSON")

	return cmd
}
