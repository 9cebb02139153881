package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/intake"
)

func (a *app) patientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Look up patients",
	}
	cmd.AddCommand(a.patientSearchCmd())
	return cmd
}

func (a *app) patientSearchCmd() *cobra.Command {
	var query api.Patient
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search patients by name, surname or id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == (api.Patient{}) {
				return fmt.Errorf("at least one of --name, --surname or --id is required")
			}

			client, err := a.newClient(intake.NewMemoryPersistence())
			if err != nil {
				return err
			}
			defer client.Close()

			patients, err := client.SearchPatient(cmd.Context(), query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(patients) == 0 {
				fmt.Fprintln(out, "No patients found")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSURNAME\tDOB\tGENDER\tSSN\tPHONE")
			for _, p := range patients {
				s := p.Summary()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					s.Id, s.Name, s.Surname, s.DateOfBirth, s.Gender, s.Ssn, s.Phone)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&query.Name, "name", "", "patient first name")
	cmd.Flags().StringVar(&query.Surname, "surname", "", "patient surname")
	cmd.Flags().StringVar(&query.Id, "id", "", "patient id")
	return cmd
}
