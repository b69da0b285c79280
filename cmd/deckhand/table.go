package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"deckhand/internal/deck"
)

func newDeckTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)
	return tw
}

// renderTransportTable renders one transport snapshot. The index column is
// right-aligned so multi-deck output lines up.
func renderTransportTable(status *deck.TransportStatus) string {
	tw := newDeckTable(table.Row{"Transport", "State", "Timecode", "Clip"})
	tw.AppendRow(table.Row{
		strconv.Itoa(status.Index),
		status.State,
		status.Timecode,
		clipLabel(status.ClipName),
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// renderSettingsTable renders key/value configuration pairs.
func renderSettingsTable(settings [][2]string) string {
	tw := newDeckTable(table.Row{"Setting", "Value"})
	for _, setting := range settings {
		tw.AppendRow(table.Row{setting[0], setting[1]})
	}
	return tw.Render()
}
