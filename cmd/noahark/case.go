package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	noahark "github.com/NikosBletsas/NoahArk-v2"
	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/intake"
)

func (a *app) caseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Prepare and submit emergency cases",
	}
	cmd.AddCommand(a.caseSubmitCmd())
	cmd.AddCommand(a.caseShowCmd())
	return cmd
}

func (a *app) caseSubmitCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a case read from a flat JSON file",
		Long: `Submit a case read from a flat JSON object of case field keys.

Fields missing from the file are sent empty. The file is never modified,
so a failed submission can simply be retried.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := readCaseFile(file)
			if err != nil {
				return err
			}

			session, err := a.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			client, err := a.newClient(session)
			if err != nil {
				return err
			}
			defer client.Close()

			client.Intake.UpdateFormData(fields)
			result, err := client.SubmitEmergencyCase(cmd.Context())
			var missing *noahark.RequiredFieldsError
			if errors.As(err, &missing) {
				return fmt.Errorf("%s is missing required fields: %v", file, missing.Missing)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.CaseID == "" {
				fmt.Fprintf(out, "Case accepted without an id: %s\n", result.Message)
				return nil
			}
			fmt.Fprintf(out, "Case %s created\n", result.CaseID)
			if result.SendDataErr != nil {
				fmt.Fprintf(out, "Warning: forwarding to the hospital failed: %v\n", result.SendDataErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "case JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) caseShowCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the normalised case record of a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := readCaseFile(file)
			if err != nil {
				return err
			}
			store := intake.NewStore()
			store.UpdateFormData(fields)
			printCase(cmd.OutOrStdout(), store.GetFormData())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "case JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readCaseFile reads a flat JSON object. Non-string scalars are kept in
// their JSON text form and null becomes "".
func readCaseFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%s: expected a flat JSON object: %w", path, err)
	}

	fields := make(map[string]string, len(obj))
	for key, value := range obj {
		value = bytes.TrimSpace(value)
		switch {
		case bytes.Equal(value, []byte("null")):
			fields[key] = ""
		case len(value) > 0 && value[0] == '"':
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fmt.Errorf("%s: field %s: %w", path, key, err)
			}
			fields[key] = s
		case len(value) > 0 && (value[0] == '{' || value[0] == '['):
			return nil, fmt.Errorf("%s: field %s must be a scalar", path, key)
		default:
			fields[key] = string(value)
		}
	}
	return fields, nil
}

// printCase writes the canonical keys in submission order, then any extra
// keys sorted.
func printCase(w io.Writer, data api.CaseFormData) {
	width := 0
	for key := range data {
		if len(key) > width {
			width = len(key)
		}
	}

	for _, key := range api.CaseFormKeys {
		fmt.Fprintf(w, "%-*s  %s\n", width, key, strconv.Quote(data[key]))
	}

	var extra []string
	for key := range data {
		if !api.IsCaseFormKey(key) {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		fmt.Fprintf(w, "%-*s  %s\n", width, key, strconv.Quote(data[key]))
	}
}
