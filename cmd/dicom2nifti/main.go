// Command dicom2nifti converts the DICOM instances of one series into a
// single NIfTI-1 volume, optionally gzip-compressed.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/charmbracelet/lipgloss"
	"github.com/suyashkumar/dicom"

	"github.com/mrsinham/dicom2nifti/cmd/dicom2nifti/wizard"
	"github.com/mrsinham/dicom2nifti/internal/series"
)

// version is set at build time via -ldflags
var version = "dev"

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	input := flag.String("input", "", "Directory holding the DICOM instances of one series (required)")
	output := flag.String("output", "", "Output file (default: <input>.nii or <input>.nii.gz)")
	compress := flag.Bool("compress", false, "Gzip-compress the NIfTI output")
	configFile := flag.String("config", "", "Load the conversion job from a YAML file")
	saveConfig := flag.String("save-config", "", "Save the conversion job to a YAML file")
	interactive := flag.Bool("interactive", false, "Prompt for the conversion parameters")
	flag.BoolVar(interactive, "i", false, "Prompt for the conversion parameters (shortcut)")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dicom2nifti %s\n", version)
		return
	}

	job := wizard.Job{Input: *input, Output: *output, Compress: *compress}

	var err error
	if *configFile != "" {
		if job, err = wizard.LoadConfig(*configFile); err != nil {
			fail(err)
		}
	}
	if *interactive {
		if job, err = wizard.Prompt(job); err != nil {
			fail(err)
		}
	}

	if job.Input == "" {
		fmt.Fprintln(os.Stderr, "Usage: dicom2nifti -input <series directory> [-output file] [-compress]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if job.Output == "" {
		job.Output = defaultOutput(job.Input, job.Compress)
	}

	if *saveConfig != "" {
		if err := job.Save(*saveConfig); err != nil {
			fail(err)
		}
	}

	if err := run(job); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
	os.Exit(1)
}

// defaultOutput names the NIfTI file after the series directory.
func defaultOutput(input string, compress bool) string {
	base := filepath.Base(filepath.Clean(input))
	if compress {
		return base + ".nii.gz"
	}
	return base + ".nii"
}

func run(job wizard.Job) error {
	files, err := listDicomFiles(job.Input)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no DICOM file in %s", job.Input)
	}

	collection := series.NewCollection()
	for _, path := range files {
		ds, err := dicom.ParseFile(path, nil)
		if err != nil {
			return pfx.Err(fmt.Errorf("parse %s: %w", path, err))
		}

		instance, err := series.NewInstance(ds)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		if err := collection.AddInstance(instance, path); err != nil {
			return err
		}
	}

	bodySize := 0
	for i := 0; i < collection.Size(); i++ {
		instance, err := collection.Instance(i)
		if err != nil {
			return err
		}
		size, err := instance.NiftiBodySize()
		if err != nil {
			return err
		}
		bodySize += size
	}
	fmt.Println(detailStyle.Render(fmt.Sprintf("%d instances, %d bytes of pixel data",
		collection.Size(), bodySize)))

	decoder := series.NewCollectionFrameDecoder(collection)
	data, err := series.Convert(collection, decoder, job.Compress)
	if err != nil {
		return err
	}

	if err := os.WriteFile(job.Output, data, 0o644); err != nil {
		return pfx.Err(err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Wrote %s (%d bytes)", job.Output, len(data))))
	return nil
}

// listDicomFiles returns the regular files of a series directory in
// deterministic order.
func listDicomFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
