package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jonwraymond/toolinvoke/tool"
	"github.com/spf13/cobra"
)

func (a *app) invokeCmd() *cobra.Command {
	var (
		input   string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "invoke NAME",
		Short: "Invoke one tool and print its result as JSON",
		Long: `Invoke runs NAME through the full pipeline: input validation, cache lookup,
dispatch, cache population and result validation.

The input is a JSON document given with --input; "-" reads it from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseInput(input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			rt, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var opts []tool.CallOption
			if noCache {
				opts = append(opts, tool.NoCache())
			}
			out, err := rt.box.Invoke(cmd.Context(), args[0], value, opts...)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", `JSON input, or "-" for stdin (default: null)`)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the cache for this call")
	return cmd
}

func parseInput(raw string, stdin io.Reader) (any, error) {
	if raw == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("--input is not valid JSON: %w", err)
	}
	return v, nil
}
