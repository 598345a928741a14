package cmd

import (
	"fmt"
	"os"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/logs"
	"github.com/gantry-labs/gantry/pkg/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// logEventsOptions are the flags shared by the cluster and image
// get-log-events commands
type logEventsOptions struct {
	stream    string
	region    string
	nextToken string
	startTime string
	endTime   string
	limit     int
	head      int
	tail      int
	follow    bool
	query     string
}

func registerLogEventsFlags(cmd *cobra.Command, o *logEventsOptions) {
	cmd.Flags().StringVar(&o.stream, "log-stream-name", "", "Name of the log stream, as listed by the log streams command")
	cmd.Flags().StringVarP(&o.region, "region", "r", "", "AWS region that the log group belongs to")
	cmd.Flags().StringVar(&o.nextToken, "next-token", "", "Token for the next page of results")
	cmd.Flags().StringVar(&o.startTime, "start-time", "", "Only fetch events at or after this time, RFC3339 or milliseconds since the epoch")
	cmd.Flags().StringVar(&o.endTime, "end-time", "", "Only fetch events before this time, RFC3339 or milliseconds since the epoch")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "Maximum number of events to fetch")
	cmd.Flags().IntVar(&o.head, "head", 0, "Fetch the first number of events of the stream")
	cmd.Flags().IntVar(&o.tail, "tail", 0, "Fetch the last number of events of the stream")
	cmd.Flags().BoolVar(&o.follow, "follow", false, "Keep polling the stream for new events until interrupted")
	cmd.Flags().StringVar(&o.query, "query", "", "JMESPath query to apply to the result")
}

func getLogEvents(cmd *cobra.Command, f clients.Factory, source logs.Source, o *logEventsOptions) error {
	in := logs.GetEventsInput{
		Source:    source,
		Stream:    o.stream,
		Limit:     o.limit,
		Head:      o.head,
		Tail:      o.tail,
		NextToken: o.nextToken,
	}

	if o.startTime != "" {
		t, err := utils.ParseTimestamp(o.startTime)
		if err != nil {
			return err
		}

		in.StartTime = t
	}

	if o.endTime != "" {
		t, err := utils.ParseTimestamp(o.endTime)
		if err != nil {
			return err
		}

		in.EndTime = t
	}

	c, err := f(cmd.Context(), o.region)
	if err != nil {
		return err
	}

	m := logs.NewManager(c)

	if o.follow {
		if o.stream == logs.StackEventsStream {
			return fmt.Errorf("the %s stream cannot be followed", logs.StackEventsStream)
		}

		return followEvents(cmd.Context(), m, in, cmd.OutOrStdout())
	}

	out, err := m.GetEvents(cmd.Context(), in)
	if err != nil {
		return err
	}

	// plain lines on a terminal, JSON for queries and scripts
	if o.query == "" {
		if fd, ok := cmd.OutOrStdout().(*os.File); ok && isatty.IsTerminal(fd.Fd()) {
			printEvents(cmd.OutOrStdout(), o.stream, out.Events)
			return nil
		}
	}

	return printJSON(cmd.OutOrStdout(), out, o.query)
}
