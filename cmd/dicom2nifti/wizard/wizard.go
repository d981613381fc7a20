// Package wizard holds the conversion-job configuration and the interactive
// prompt of the dicom2nifti command.
package wizard

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

// Job describes one conversion: where the DICOM series lives, where the
// NIfTI file goes, and whether to gzip it.
type Job struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Compress bool   `yaml:"compress"`
}

// LoadConfig reads a conversion job from a YAML file.
func LoadConfig(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, err
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return job, nil
}

// Save writes the job to a YAML file, so a run can be repeated later.
func (j Job) Save(path string) error {
	data, err := yaml.Marshal(j)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Prompt asks for the conversion parameters interactively, seeded with
// whatever was already provided on the command line.
func Prompt(defaults Job) (Job, error) {
	job := defaults

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("DICOM series directory").
				Description("Directory holding the instances of one series").
				Value(&job.Input).
				Validate(func(s string) error {
					info, err := os.Stat(s)
					if err != nil {
						return fmt.Errorf("cannot open %s", s)
					}
					if !info.IsDir() {
						return fmt.Errorf("%s is not a directory", s)
					}
					return nil
				}),
			huh.NewInput().
				Title("Output file").
				Description("Leave empty to name it after the input directory").
				Value(&job.Output),
			huh.NewConfirm().
				Title("Compress with gzip?").
				Value(&job.Compress),
		),
	)

	if err := form.Run(); err != nil {
		return Job{}, err
	}
	return job, nil
}
