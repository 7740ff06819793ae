package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var screenSummaryOnly bool

var screenCmd = &cobra.Command{
	Use:   "screen <message.xml>",
	Short: "Screen one ISO 20022 message from a file",
	Long:  "Parses the given ISO 20022 XML file (use \"-\" for stdin), screens every party against the sanctions index and prints the response JSON. The index is refreshed first when it has never been built.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("screen"); err != nil {
			return err
		}

		raw, err := readMessage(args[0])
		if err != nil {
			return err
		}

		env, err := initApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.screener.Screen(ctx, raw)
		if err != nil {
			return err
		}

		if screenSummaryOnly {
			fmt.Printf("%s  riskScore=%d  action=%s  matches=%d\n",
				resp.Engine.ResponseCode,
				resp.Engine.RiskScore,
				resp.Decision.RecommendedAction,
				len(resp.Matches))
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	screenCmd.Flags().BoolVar(&screenSummaryOnly, "summary", false, "print a one-line verdict instead of the full response")
	rootCmd.AddCommand(screenCmd)
}

// readMessage loads the message bytes from a path or stdin ("-").
func readMessage(path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, eris.Wrap(err, "read stdin")
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read message %s", path)
	}
	return raw, nil
}
