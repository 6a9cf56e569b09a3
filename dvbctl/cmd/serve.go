package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the encoder status over HTTP until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		port, _ := cmd.Flags().GetInt("port")
		_, port = startMonitor(s, port)

		openBrowser, _ := cmd.Flags().GetBool("open")
		if openBrowser {
			url := fmt.Sprintf("http://localhost:%d", port)
			if err := browser.OpenURL(url); err != nil {
				s.logger.Printf("cannot open browser: %v", err)
			}
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "Port to listen on, 0 for a random one")
	serveCmd.Flags().Bool("open", false, "Open the status page in a browser")
}
