package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eldtechnologies/roomrelay/clients/go/roomrelay"
)

type options struct {
	server   string
	clientID string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "signalctl",
		Short:         "Talk to a roomrelay signaling server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultServer := os.Getenv("ROOMRELAY_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", defaultServer, "relay base URL")
	root.PersistentFlags().StringVar(&opts.clientID, "client-id", "", "client id to post as (random if empty)")

	root.AddCommand(
		newRoomCmd(),
		newSendCmd(opts),
		newPollCmd(opts),
		newSessionCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

func (o *options) client() *roomrelay.Client {
	if o.clientID == "" {
		o.clientID = uuid.NewString()
	}
	return roomrelay.NewClient(o.server, o.clientID)
}

func newRoomCmd() *cobra.Command {
	room := &cobra.Command{
		Use:   "room",
		Short: "Room helpers",
	}

	var words int
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Print a fresh human-readable room name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), petname.Generate(words, "-"))
			return nil
		},
	}
	newCmd.Flags().IntVarP(&words, "words", "w", 3, "number of words in the name")

	room.AddCommand(newCmd)
	return room
}

func newSendCmd(opts *options) *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "send <room> <type>",
		Short: "Post a signaling message (join, leave, offer, answer, candidate)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body any
			if payload != "" {
				raw, err := readPayload(payload, cmd.InOrStdin())
				if err != nil {
					return err
				}
				body = raw
			}

			c := opts.client()
			if err := c.Send(cmd.Context(), args[0], args[1], body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s as %s\n", titleStyle.Render("sent"), args[1], c.ClientID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&payload, "payload", "p", "", "JSON payload, or - to read it from stdin")
	return cmd
}

// readPayload returns arg as raw JSON, reading stdin when arg is "-".
func readPayload(arg string, stdin io.Reader) (json.RawMessage, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func newPollCmd(opts *options) *cobra.Command {
	var (
		follow   bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "poll <room>",
		Short: "Print the live messages of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if follow && interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}

			c := opts.client()
			out := cmd.OutOrStdout()

			if !follow {
				messages, err := c.Poll(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printMessages(out, messages)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			cursor := roomrelay.NewCursor()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				messages, err := c.Poll(ctx, args[0])
				if err != nil && ctx.Err() == nil {
					return err
				}
				printMessages(out, c.Since(messages, cursor))

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep polling and print new messages")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "poll interval with --follow")
	return cmd
}

func printMessages(w io.Writer, messages []roomrelay.Message) {
	for _, m := range messages {
		ts := time.UnixMilli(m.Timestamp).Format("15:04:05.000")
		from := m.ClientID
		if len(from) > 8 {
			from = from[:8]
		}
		line := timeStyle.Render(ts) + " " + typeStyle(m.Type).Render(m.Type) + clientStyle.Render(from)
		if len(m.Payload) > 0 {
			line += " " + string(m.Payload)
		}
		fmt.Fprintln(w, line)
	}
}

func newSessionCmd(opts *options) *cobra.Command {
	session := &cobra.Command{
		Use:   "session",
		Short: "Media broker sessions",
	}

	var tracks string
	create := &cobra.Command{
		Use:   "create <sdp-file>",
		Short: "Open a broker session with the SDP offer in a file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := sessionRequest(args[0], "offer", tracks, cmd.InOrStdin())
			if err != nil {
				return err
			}
			resp, err := opts.client().CreateSession(cmd.Context(), req)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	create.Flags().StringVar(&tracks, "tracks", "", "JSON track list forwarded to the broker")

	var descType string
	renegotiate := &cobra.Command{
		Use:   "renegotiate <session-id> <sdp-file>",
		Short: "Send an updated description for a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := sessionRequest(args[1], descType, tracks, cmd.InOrStdin())
			if err != nil {
				return err
			}
			resp, err := opts.client().Renegotiate(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	renegotiate.Flags().StringVar(&descType, "type", "answer", "description type (offer or answer)")
	renegotiate.Flags().StringVar(&tracks, "tracks", "", "JSON track list forwarded to the broker")

	session.AddCommand(create, renegotiate)
	return session
}

func sessionRequest(path, descType, tracks string, stdin io.Reader) (roomrelay.SessionRequest, error) {
	req := roomrelay.SessionRequest{Type: descType}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return req, err
	}
	req.SDP = string(data)

	if tracks != "" {
		if !json.Valid([]byte(tracks)) {
			return req, fmt.Errorf("tracks is not valid JSON")
		}
		req.Tracks = json.RawMessage(tracks)
	}
	return req, nil
}

func printSession(w io.Writer, resp *roomrelay.SessionResponse) {
	if resp.SessionID != "" {
		fmt.Fprintln(w, titleStyle.Render("session")+" "+resp.SessionID)
	}
	fmt.Fprint(w, resp.SDP)
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the relay's health checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			resp, err := opts.client().Health(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (v%s)\n", titleStyle.Render("status"), resp.Status, resp.Version)
			for name, check := range resp.Checks {
				fmt.Fprintf(out, "  %-10s %s %s\n", name, check.Status, timeStyle.Render(check.Latency+check.Message))
			}
			return nil
		},
	}
}
