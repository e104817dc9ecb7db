package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/akita/v4/sim"
)

const (
	LevelTrace slog.Level = slog.LevelInfo + 1
)

func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// LogLevel is the handler level that shows Trace events only when trace is
// set. LevelTrace sits above Info, so leaving tracing off needs Warn.
func LogLevel(trace bool) slog.Level {
	if trace {
		return LevelTrace
	}

	return slog.LevelWarn
}

// ChannelTracer logs every value that enters or leaves a channel it is
// attached to.
type ChannelTracer struct{}

// Func implements sim.Hook.
func (ChannelTracer) Func(ctx sim.HookCtx) {
	link, ok := ctx.Domain.(Link)
	if !ok {
		return
	}

	behavior := "Write"
	if ctx.Pos == HookPosChannelRead {
		behavior = "Read"
	}

	Trace("Channel",
		"Behavior", behavior,
		"Channel", link.Name(),
		"Size", link.Len(),
		"Data", fmt.Sprintf("%v", ctx.Item),
	)
}

// DumpLinks renders the occupancy of every channel as a table. Only
// channels holding values are listed unless all is set.
func DumpLinks(w io.Writer, title string, links Links, all bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Channel", "Size", "Capacity", "Latency"})

	for _, link := range links {
		if !all && link.Len() == 0 {
			continue
		}

		t.AppendRow(table.Row{link.Name(), link.Len(), link.Cap(), link.Latency()})
	}

	t.AppendFooter(table.Row{"Total", len(links), "", ""})
	t.Render()
}
