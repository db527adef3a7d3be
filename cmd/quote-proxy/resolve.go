package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Sternrassler/item-quote-client/pkg/resolve"
	"github.com/spf13/cobra"
)

// errQuotaExceeded marks a CLI batch that stopped on the upstream quota.
var errQuotaExceeded = errors.New("upstream quota exhausted")

func newResolveCmd(cfgFile *string) *cobra.Command {
	var byID, byNumber bool

	cmd := &cobra.Command{
		Use:   "resolve [identifiers...]",
		Short: "Resolve and price a batch of items once, printing JSON",
		Example: "  quote-proxy resolve --by-number A-100 \"Widget\"\n" +
			"  quote-proxy resolve --by-id 101 202",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var res *resolve.Result
			if byID {
				ids, err := parseIDs(args)
				if err != nil {
					return err
				}
				res, err = a.service.ResolveByID(cmd.Context(), ids)
				if err != nil {
					return err
				}
			} else {
				res, err = a.service.ResolveByNumber(cmd.Context(), args)
				if err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}

			if res.Quota != nil {
				return fmt.Errorf("%w: retry after %ds", errQuotaExceeded, res.Quota.RetryAfterSeconds)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&byID, "by-id", false, "treat identifiers as numeric upstream ids")
	cmd.Flags().BoolVar(&byNumber, "by-number", false, "treat identifiers as item numbers or names")
	cmd.MarkFlagsMutuallyExclusive("by-id", "by-number")
	cmd.MarkFlagsOneRequired("by-id", "by-number")

	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
