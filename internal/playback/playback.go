package playback

import (
	"context"
	"fmt"
	"io"
)

type Player interface {
	Play(ctx context.Context, filename string) error
}

// Play writes each label and hands the matching file to the player. Pairs with
// an empty filename are skipped, and extra entries in the longer slice are ignored.
func Play(ctx context.Context, out io.Writer, player Player, filenames, labels []string) error {
	n := min(len(filenames), len(labels))

	for i := 0; i < n; i++ {
		if filenames[i] == "" {
			continue
		}

		if _, err := fmt.Fprintf(out, "%s:\n%s\n\n", labels[i], filenames[i]); err != nil {
			return err
		}
		if err := player.Play(ctx, filenames[i]); err != nil {
			return fmt.Errorf("failed to play %s: %w", filenames[i], err)
		}
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
	}

	return nil
}
