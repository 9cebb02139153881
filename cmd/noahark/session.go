package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NikosBletsas/NoahArk-v2/intake"
)

func (a *app) sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the persisted active case",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the active case pointer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()
			p, err := session.Load()
			if errors.Is(err, intake.ErrNoSession) {
				fmt.Fprintln(out, "No active case")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Case:    %s\n", p.CaseID)
			fmt.Fprintf(out, "Patient: %s %s (%s)\n", p.Name, p.Surname, p.PatientID)
			fmt.Fprintf(out, "Created: %s\n", p.CreatedAt.Local().Format(time.DateTime))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the active case",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Active case cleared")
			return nil
		},
	})

	return cmd
}
