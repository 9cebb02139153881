package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/NikosBletsas/NoahArk-v2/intake"
	"github.com/NikosBletsas/NoahArk-v2/internal/dashboard"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Live terminal status: hub state, battery and heartbeat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(intake.NewMemoryPersistence())
			if err != nil {
				return err
			}
			defer client.Close()

			// the alt screen owns the terminal while the dashboard runs
			util.SetLogger(util.DiscardLogger{})

			program := tea.NewProgram(
				dashboard.New(client.Status, client.TerminalID),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)

			client.Status.OnBatteryStatus(func(pct *float64) {
				program.Send(dashboard.BatteryMsg{Percentage: pct})
			})
			client.Status.OnHeartBeat(func(payload json.RawMessage) {
				program.Send(dashboard.HeartBeatMsg{At: time.Now(), Payload: payload})
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				status, err := client.GetBatteryStatus(ctx)
				if err != nil {
					program.Send(dashboard.ErrMsg{Err: fmt.Errorf("battery: %w", err)})
				} else {
					program.Send(dashboard.BatteryMsg{Percentage: status.BatteryPercentage})
				}
				if _, err := client.Status.Connect(ctx); err != nil {
					program.Send(dashboard.ErrMsg{Err: err})
				}
			}()

			if _, err := program.Run(); err != nil {
				return fmt.Errorf("dashboard failed: %w", err)
			}
			return nil
		},
	}
}
