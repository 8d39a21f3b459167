package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"treblle-hq/agent/pkg/agent"
	"treblle-hq/agent/pkg/cli"
	"treblle-hq/agent/pkg/gatherer"
	"treblle-hq/agent/pkg/payload"
	"treblle-hq/agent/pkg/publisher"
)

var pingFlags struct {
	timeout time.Duration
	path    string
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Deliver a synthetic payload and report the outcome",
	Long: `Build a payload for a synthetic GET exchange, deliver it to the next
ingestion endpoint and wait for the result. Use it to check credentials and
network access from the host the agent runs on.

Examples:
  treblle ping
  treblle ping --timeout 10s --path /healthcheck`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)

	pingCmd.Flags().DurationVar(&pingFlags.timeout, "timeout", 5*time.Second, "maximum time to wait for the delivery")
	pingCmd.Flags().StringVar(&pingFlags.path, "path", "/treblle/ping", "request path reported in the payload")
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := agent.New(cfg)
	if a == nil {
		return cli.NewConfigError(cfgFile, err)
	}
	defer a.Close()
	if a.Disabled() {
		if err == nil {
			err = fmt.Errorf("capture is disabled in environment %q", cfg.Capture.Environment)
		}
		return cli.NewCommandError("ping", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), pingFlags.timeout)
	defer cancel()

	pl := syntheticPayload(a.Gatherer(), pingFlags.path)
	d, err := a.Publisher().SubmitAndWait(ctx, pl)

	out := cmd.OutOrStdout()
	if d.Endpoint != "" {
		fmt.Fprintf(out, "endpoint:   %s\n", d.Endpoint)
		fmt.Fprintf(out, "outcome:    %s\n", d.Outcome)
		fmt.Fprintf(out, "status:     %d\n", d.StatusCode)
		fmt.Fprintf(out, "size:       %d bytes\n", d.Bytes)
		fmt.Fprintf(out, "duration:   %s\n", d.Duration.Round(time.Millisecond))
		fmt.Fprintf(out, "request id: %s\n", d.RequestID)
	}
	if err != nil {
		return cli.NewCommandError("ping", err)
	}
	if d.Outcome != publisher.OutcomeAccepted {
		return cli.NewCommandError("ping", errors.New("delivery was not accepted"))
	}
	fmt.Fprintln(out, "✓ Payload accepted")
	return nil
}

// syntheticPayload runs a fake exchange through g so the payload is built and
// masked exactly like captured traffic.
func syntheticPayload(g *gatherer.Gatherer, path string) *payload.Payload {
	u := url.URL{Scheme: "http", Host: "localhost", Path: path}
	header := http.Header{
		"User-Agent": []string{"treblle-cli/" + Version},
		"Accept":     []string{"application/json"},
	}

	x := g.Begin(gatherer.RawRequest{
		Method:     http.MethodGet,
		URL:        u.String(),
		Path:       path,
		Route:      path,
		Header:     header,
		Query:      url.Values{},
		RemoteAddr: "127.0.0.1:0",
	})
	body := []byte(`{"message":"pong"}`)
	g.Complete(x, gatherer.RawResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       body,
		Size:       int64(len(body)),
	})
	return g.Finalize(x, nil)
}
