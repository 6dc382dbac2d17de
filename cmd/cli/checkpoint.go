package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewCheckpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or move the last processed post id",
	}

	cmd.AddCommand(newCheckpointShowCommand())
	cmd.AddCommand(newCheckpointResetCommand())

	return cmd
}

func newCheckpointShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			container, err := newContainer(ctx)
			if err != nil {
				return err
			}
			defer closeContainer(container)

			return showCheckpoint(ctx, cmd.OutOrStdout(), container.Checkpoints)
		},
	}
}

func newCheckpointResetCommand() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the checkpoint, or move it with --to",
		Long: `Clear the stored checkpoint so the next run reprocesses every fetched post.
With --to, set the checkpoint to a specific post id instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			container, err := newContainer(ctx)
			if err != nil {
				return err
			}
			defer closeContainer(container)

			return resetCheckpoint(ctx, container.Checkpoints, to)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Set the checkpoint to this post id")

	return cmd
}

func showCheckpoint(ctx context.Context, out io.Writer, store domain.CheckpointStore) error {
	postID, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}

	if postID == "" {
		fmt.Fprintln(out, "No checkpoint stored, the next run processes every fetched post")
		return nil
	}

	fmt.Fprintln(out, postID)
	return nil
}

// resetCheckpoint clears the checkpoint, or moves it to a post id when to is set.
func resetCheckpoint(ctx context.Context, store domain.CheckpointStore, to string) error {
	if to != "" {
		if err := store.Set(ctx, to); err != nil {
			return fmt.Errorf("failed to move checkpoint: %w", err)
		}
		log.Info().Str("post_id", to).Msg("Checkpoint moved")
		return nil
	}

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}

	log.Info().Msg("Checkpoint cleared")
	return nil
}
