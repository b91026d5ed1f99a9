package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/signaltower/internal/config"
	"github.com/vango-dev/signaltower/internal/errors"
	"github.com/vango-dev/signaltower/pkg/server"
	"github.com/vango-dev/signaltower/pkg/tower"
)

// client returns a client for --server, or for the server configured in
// tower.json when the flag is unset.
func (o *globalOptions) client() (*server.Client, error) {
	url := o.serverURL
	if url == "" {
		cfg, err := config.Resolve(o.configPath)
		if err != nil {
			return nil, err
		}
		url = cfg.URL()
	}
	return server.NewClient(url, nil), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printChannels(w io.Writer, infos []tower.ChannelInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tLEVEL\tORIGINAL\tSUBSCRIBERS\tDISPATCHES\tLATEST")
	for _, info := range infos {
		latest := "-"
		if info.HasLatest {
			latest = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			info.Name, info.PayloadType, info.LogLevel, info.OriginalLogLevel,
			info.Subscribers, info.Dispatches, latest)
	}
	return tw.Flush()
}

func channelsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "channels [name]",
		Short: "List channels, or show one channel with its latest payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				cs, err := c.Channel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(out, cs)
			}

			infos, err := c.Channels(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(out, infos)
			}
			return printChannels(out, infos)
		},
	}
}

func dispatchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <name> <json|->",
		Short: "Dispatch a JSON payload on a channel",
		Long: `Dispatch a JSON payload on a channel of a running server.

The payload must decode into the channel's payload type. Pass - to read
the payload from standard input.

Examples:
  tower dispatch terminalMsgReceived '"hello"'
  tower dispatch windowFocusChanged true
  tower dispatch appDataReceived - < app_data.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(args[1])
			if args[1] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.New("T010").Wrap(err)
				}
				payload = data
			}
			if !json.Valid(payload) {
				return errors.New("T010").
					WithDetail("The payload is not valid JSON.").
					WithSuggestion(`Quote strings, e.g. '"hello"'`)
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Dispatch(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			success(cmd.OutOrStdout(), "Dispatched on %s (%d total)", resp.Channel, resp.Dispatches)
			return nil
		},
	}
}

func logLevelCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log-level <level|reset>",
		Short: "Set every channel's log level, or reset to the original levels",
		Long: `Set every channel's log level on a running server.

Levels: 0 (silent), 1 (dispatch), 2 (payload). "reset" restores each
channel to the level it was created with. The numeric form -1 also resets
but must follow "--" so it is not read as a flag.

Examples:
  tower log-level 2
  tower log-level silent
  tower log-level reset
  tower log-level -- -1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := tower.ParseLogLevel(strings.ToLower(args[0]))
			if err != nil {
				return errors.FromTower(err)
			}
			if level < tower.ResetLevel {
				return errors.New("T006").
					WithDetail(fmt.Sprintf("%d is below -1", level))
			}

			c, err := opts.client()
			if err != nil {
				return err
			}

			var infos []tower.ChannelInfo
			if level == tower.ResetLevel {
				infos, err = c.ResetLogLevels(cmd.Context())
			} else {
				infos, err = c.SetLogLevel(cmd.Context(), level)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, infos)
			}
			success(out, "Log level %s applied to %d channels", level, len(infos))
			return nil
		},
	}
}

func snapshotCmd(opts *globalOptions) *cobra.Command {
	var archive bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a snapshot of every channel",
		Long: `Capture a snapshot of every channel of a running server.

With --archive the server uploads the snapshot to the configured S3
bucket and the object location is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if archive {
				resp, err := c.Archive(cmd.Context())
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return printJSON(out, resp)
				}
				success(out, "Snapshot %s archived", resp.ID)
				info(out, "%s", resp.Location)
				return nil
			}

			snap, err := c.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(out, snap)
		},
	}

	cmd.Flags().BoolVarP(&archive, "archive", "a", false, "Archive the snapshot to S3")

	return cmd
}
