// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/suppressions"
)

func suppressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suppress",
		Short: "Manage suppressions for reviewed findings",
		Long: `Suppressions hide findings an analyst has reviewed and dismissed. A rule
is keyed by the record, its category and the values that matched, so a
corpus change that alters the match brings the record back for review.`,
	}
	cmd.PersistentFlags().String("suppressions", "", "suppressions file (default: suppressions.yaml in the config dir)")

	add := &cobra.Command{
		Use:     "add <run-id> <record-ref>",
		Short:   "Suppress a matched record from a stored run",
		Example: `  affiliate-scan suppress add 6f1c... award-1042 --reason "name collision with a US company"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.suppressAdd(cmd, args[0], args[1])
		},
	}
	add.Flags().String("reason", "", "why the finding is dismissed (required)")
	add.Flags().Duration("expires", suppressions.DefaultExpiry, "how long the suppression stays active")
	add.Flags().String("by", "", "reviewer name (default: $USER)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List suppression rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sm, err := a.suppressionManager()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rules := sm.ListSuppressions()
			if len(rules) == 0 {
				fmt.Fprintln(out, "No suppression rules found.")
				return nil
			}
			now := time.Now()
			for _, rule := range rules {
				status := "enabled"
				switch {
				case rule.Expired(now):
					status = "expired"
				case !rule.Enabled:
					status = "disabled"
				}
				expires := "never"
				if rule.ExpiresAt != nil {
					expires = humanize.Time(*rule.ExpiresAt)
				}
				fmt.Fprintf(out, "%s  %-8s  %-20s  expires %-16s  %s\n",
					rule.ID, status, rule.Metadata["record_ref"], expires, rule.Reason)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <rule-id>",
		Short: "Delete a suppression rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := a.suppressionManager()
			if err != nil {
				return err
			}
			if err := sm.RemoveSuppression(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}

	toggle := func(use, short string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <rule-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := a.suppressionManager()
				if err != nil {
					return err
				}
				return sm.SetEnabled(args[0], enabled)
			},
		}
	}

	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired suppression rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sm, err := a.suppressionManager()
			if err != nil {
				return err
			}
			removed, err := sm.CleanupExpired()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired rules\n", removed)
			return nil
		},
	}

	cmd.AddCommand(add, list, remove, cleanup,
		toggle("enable", "Re-enable a disabled suppression rule", true),
		toggle("disable", "Disable a suppression rule without deleting it", false))
	return cmd
}

func (a *app) suppressionManager() (*suppressions.SuppressionManager, error) {
	return suppressions.NewSuppressionManager(a.v.GetString("suppressions"))
}

func (a *app) suppressAdd(cmd *cobra.Command, runID, recordRef string) error {
	ctx := cmd.Context()
	store, err := a.openStore(ctx, a.dbPath(true))
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Detections(ctx, runID, true)
	if err != nil {
		return err
	}
	var target *detector.ScreenResult
	for i := range results {
		if results[i].RecordRef == recordRef {
			target = &results[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no matched record %q in run %s", recordRef, runID)
	}

	sm, err := a.suppressionManager()
	if err != nil {
		return err
	}
	by := a.v.GetString("by")
	if by == "" {
		by = os.Getenv("USER")
	}
	expires := time.Now().Add(a.v.GetDuration("expires"))
	rule, err := sm.AddSuppression(*target, a.v.GetString("reason"), by, &expires)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s for %s (expires %s)\n", rule.ID, recordRef, humanize.Time(expires))
	return nil
}
