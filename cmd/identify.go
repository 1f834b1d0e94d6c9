package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leaseline/leaseline/internal/identity"
)

var identifyInput identity.IdentifyInput

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify a tenant by phone, email, or name",
	RunE: func(cmd *cobra.Command, args []string) error {
		if identifyInput.Phone == "" && identifyInput.Email == "" && identifyInput.Name == "" {
			return eris.New("at least one of --phone, --email, --name is required")
		}

		ctx := cmd.Context()
		eng, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close()

		match, err := eng.Matcher.IdentifyTenant(ctx, identifyInput)
		if err != nil {
			return err
		}
		return printMatch(match)
	},
}

func init() {
	identifyCmd.Flags().StringVar(&identifyInput.Phone, "phone", "", "caller phone number")
	identifyCmd.Flags().StringVar(&identifyInput.Email, "email", "", "caller email")
	identifyCmd.Flags().StringVar(&identifyInput.Name, "name", "", "caller name")
	identifyCmd.Flags().StringVar(&identifyInput.PropertyManagerID, "pm", "", "restrict to a property manager id")
	rootCmd.AddCommand(identifyCmd)
}
