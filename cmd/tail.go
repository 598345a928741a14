package cmd

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/gantry-labs/gantry/pkg/logs"
)

var termColors = []color.Attribute{
	color.FgRed,
	color.FgGreen,
	color.FgYellow,
	color.FgBlue,
	color.FgMagenta,
	color.FgCyan,
	color.FgWhite,
}

const followInterval = 2 * time.Second

// followEvents prints the events of a log stream and keeps polling the
// forward token for new ones until interrupted
func followEvents(ctx context.Context, m *logs.Manager, in logs.GetEventsInput, w io.Writer) error {
	name := color.New(streamColor(in.Stream))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	for {
		out, err := m.GetEvents(ctx, in)
		if err != nil {
			return err
		}

		for _, e := range out.Events {
			name.Fprintf(w, "[%s] ", in.Stream)
			fmt.Fprintf(w, "%s %s\n", e.Timestamp.Format(time.RFC3339), e.Message)
		}

		// an empty token means the stream has no further pages yet,
		// keep polling with the previous one
		if out.NextToken != "" {
			in.NextToken = out.NextToken
		}

		select {
		case <-sigs:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// printEvents writes one line per event
func printEvents(w io.Writer, stream string, events []logs.Event) {
	name := color.New(streamColor(stream))

	for _, e := range events {
		name.Fprintf(w, "[%s] ", stream)
		fmt.Fprintf(w, "%s %s\n", e.Timestamp.Format(time.RFC3339), e.Message)
	}
}

// streamColor picks a stable color for a stream name
func streamColor(name string) color.Attribute {
	h := fnv.New32a()
	h.Write([]byte(name))

	return termColors[int(h.Sum32())%len(termColors)]
}
