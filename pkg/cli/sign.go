package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fiverflow/pkg/config"
	"fiverflow/pkg/services/storage"

	"github.com/spf13/cobra"
)

var (
	signTTL   time.Duration
	signWatch bool
)

var signCmd = &cobra.Command{
	Use:   "sign <path>",
	Short: "Print a signed URL for a stored asset",
	Long: `Prints a time-limited signed URL for the object at <path>.

With --watch the URL is renewed shortly before it expires and every new
URL is printed until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().DurationVar(&signTTL, "ttl", storage.DefaultTTL, "Validity of the signed URL (default SIGNED_URL_TTL)")
	signCmd.Flags().BoolVar(&signWatch, "watch", false, "Keep renewing the URL until interrupted")
}

func runSign(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFiles()...)
	if err != nil {
		return err
	}

	signer, err := storage.NewSigner(cfg.StorageProvider, cfg.Storage)
	if err != nil {
		return err
	}

	ttl := signTTLFor(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !signWatch {
		url, err := signer.SignURL(ctx, args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	}

	return watch(ctx, cmd.OutOrStdout(), signer, args[0], ttl)
}

// signTTLFor prefers an explicit --ttl over SIGNED_URL_TTL.
func signTTLFor(cmd *cobra.Command, cfg *config.Config) time.Duration {
	if cmd.Flags().Changed("ttl") || cfg.SignedURLTTL <= 0 {
		return signTTL
	}
	return cfg.SignedURLTTL
}

func watch(ctx context.Context, out io.Writer, signer storage.Signer, path string, ttl time.Duration) error {
	r := storage.NewRefresher(signer,
		storage.WithTTL(ttl),
		storage.WithOnChange(func(s storage.Snapshot) {
			switch s.State {
			case storage.Displayed:
				fmt.Fprintf(out, "%s\t%s\n", s.ExpiresAt.Format(time.RFC3339), s.URL)
			case storage.Unloaded:
				if s.Path != "" {
					fmt.Fprintf(out, "failed to sign %s\n", s.Path)
				}
			}
		}),
	)
	defer r.Close()

	r.SetPath(path)
	<-ctx.Done()
	return nil
}
