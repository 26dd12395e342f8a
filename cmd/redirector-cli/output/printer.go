// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package output renders CLI results as aligned text or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Field is one labeled value in a Fields block.
type Field struct {
	Key   string
	Value string
}

// Printer writes command results. Commands call JSON in --json mode and the
// text methods otherwise; the two are never mixed in one invocation.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// JSON writes v as indented JSON followed by a newline.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes rows under headers with columns padded to a common width.
func (p *Printer) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(p.w, "No data available.")
		return
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// Fields writes "Key: value" lines with values aligned on the longest key.
func (p *Printer) Fields(fields []Field) {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key)+1)
	}
	for _, f := range fields {
		fmt.Fprintf(p.w, "  %-*s  %s\n", width, f.Key+":", f.Value)
	}
}

// Line writes msg followed by a newline.
func (p *Printer) Line(msg string) {
	fmt.Fprintln(p.w, msg)
}

// Percent formats a share such as 66.666 as "66.7%".
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// YesNo formats a flag for tables.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
