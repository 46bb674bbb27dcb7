package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/NovoNihilo/clipforge/internal/clips"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the clip queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clips in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]clips.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status, err := clips.ParseStatus(raw)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *clips.Store) error {
				profile, err := store.GetProfileBySlug(cmd.Context(), ctx.profileSlug())
				if err != nil {
					return err
				}

				var items []*clips.Clip
				switch {
				case profile != nil:
					items, err = store.ListForProfile(cmd.Context(), profile.ID, statuses...)
				case len(statuses) > 0:
					items, err = store.ListByStatus(cmd.Context(), statuses...)
				default:
					items, err = store.List(cmd.Context())
				}
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				queueTable := renderTable(
					[]string{"ID", "Title", "Platform", "Status", "Score", "Created"},
					buildClipListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), queueTable)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by clip status (repeatable)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [clipID...]",
		Short: "Reset failed clips for reprocessing",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid clip id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(store *clips.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed clips\n", updated)
					return nil
				}

				for _, id := range ids {
					clip, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if clip == nil {
						fmt.Fprintf(out, "Clip %d not found\n", id)
						continue
					}
					if clip.Status != clips.StatusFailed {
						fmt.Fprintf(out, "Clip %d is not in failed state\n", id)
						continue
					}
					updated, err := store.RetryFailed(cmd.Context(), id)
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Clip %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Clip %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished clips from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *clips.Store) error {
				out := cmd.OutOrStdout()
				if clearAll {
					removed, err := store.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d clips\n", removed)
					return nil
				}
				removed, err := store.ClearTerminal(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d finished clips\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every clip, not just packaged and failed ones")
	return cmd
}
