package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leaseline/leaseline/internal/phone"
	"github.com/leaseline/leaseline/internal/resolver"
)

var (
	resolvePhone string
	resolveEvent string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a phone number or webhook event to an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolvePhone == "" && resolveEvent == "" {
			return eris.New("one of --phone or --event is required")
		}

		ctx := cmd.Context()
		eng, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close()

		if resolvePhone != "" {
			match, err := eng.Accounts.ResolveAccount(ctx, phone.Normalize(resolvePhone))
			if err != nil {
				return err
			}
			return printMatch(match)
		}

		data, err := os.ReadFile(resolveEvent)
		if err != nil {
			return eris.Wrapf(err, "read event %s", resolveEvent)
		}
		var event struct {
			Headers map[string]string `json:"headers"`
			Body    resolver.Payload  `json:"body"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			return eris.Wrap(err, "parse event")
		}
		headers := http.Header{}
		for k, v := range event.Headers {
			headers.Set(k, v)
		}

		match, err := eng.Pipeline.Resolve(ctx, headers, event.Body)
		if err != nil {
			return err
		}
		return printMatch(match)
	},
}

// printMatch writes the match as JSON, or a miss marker for nil.
func printMatch[T any](m *T) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if m == nil {
		return enc.Encode(map[string]any{"matched": false})
	}
	return enc.Encode(m)
}

func init() {
	resolveCmd.Flags().StringVar(&resolvePhone, "phone", "", "phone number to resolve")
	resolveCmd.Flags().StringVar(&resolveEvent, "event", "", "path to a JSON file with webhook headers and body")
	rootCmd.AddCommand(resolveCmd)
}
