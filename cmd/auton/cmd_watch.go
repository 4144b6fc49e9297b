package main

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/apexftc/go-auton/pkg/hub"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print live telemetry from a running dashboard",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://localhost:8080/ws/telemetry", "Telemetry websocket URL")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, watchURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", watchURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	out := cmd.OutOrStdout()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		f, err := hub.DecodeFrame(data)
		if errors.Is(err, hub.ErrUnexpectedKind) {
			continue
		}
		if err != nil {
			logger.Debug().Err(err).Msg("undecodable message")
			continue
		}
		fmt.Fprintf(out, "--- frame %d %s\n%s\n", f.Seq, f.Time.Format("15:04:05.000"), f)
	}
}
