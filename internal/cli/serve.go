package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jwwelbor/marcus/internal/protocol"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to serve the protocol endpoint on")
	RootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordination server (protocol HTTP endpoint + background workers)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := openCore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		workers := c.Start(ctx)

		d := protocol.New(c)
		server := &http.Server{Addr: serveAddr, Handler: d.HTTPHandler()}

		go func() {
			pterm.Info.Printf("listening on %s\n", serveAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				pterm.Error.Printf("server failed: %v\n", err)
			}
		}()

		<-ctx.Done()
		pterm.Info.Println("shutting down")

		shutdownCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return workers.Wait()
	},
}
