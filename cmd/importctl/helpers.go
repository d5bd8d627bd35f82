package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pandahoho/importer/internal/core"
)

func lookupTarget(reg *core.Registry, key string) (core.Target, error) {
	target, ok := reg.Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown import target %q (choose one of: %s)", key, strings.Join(reg.Keys(), ", "))
	}
	return target, nil
}

func readCSVFile(path string) (core.RawFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.RawFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return core.RawFile{Name: filepath.Base(path), MIMEType: "text/csv", Data: data}, nil
}

// writeSnapshot renders a pipeline snapshot in the requested format.
func writeSnapshot(w io.Writer, snap core.Snapshot, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		writeText(w, snap)
		return nil
	}
	return fmt.Errorf("unknown format %q (use text, json or yaml)", format)
}

func writeText(w io.Writer, snap core.Snapshot) {
	fmt.Fprintf(w, "File:      %s\n", snap.FileName)
	if snap.Encoding != "" {
		fmt.Fprintf(w, "Encoding:  %s\n", snap.Encoding)
	}
	fmt.Fprintf(w, "State:     %s\n", snap.State)
	fmt.Fprintf(w, "Records:   %d\n", snap.RecordCount)

	for _, d := range snap.Diagnostics {
		fmt.Fprintf(w, "Note:      [%s] %s\n", d.Severity, d.Message)
	}

	if snap.ErrorCount > 0 {
		fmt.Fprintf(w, "Errors:    %d\n", snap.ErrorCount)
		for _, line := range snap.ErrorSummary {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if snap.Problem != nil {
		fmt.Fprintf(w, "Fix:       %s (%s). %s\n", snap.Problem.Message, snap.Problem.Code, snap.Problem.Action)
	}
	if snap.SubmitError != nil {
		u := snap.SubmitError.User
		fmt.Fprintf(w, "Submit:    failed: %s (%s). %s\n", u.Message, u.Code, u.Action)
	}
	if r := snap.LastReport; r != nil {
		fmt.Fprintf(w, "Submitted: %d records (%d created, %d updated) in %s\n",
			r.Result.Count, r.Result.Created, r.Result.Updated, r.Duration.Round(time.Millisecond))
	}
}
