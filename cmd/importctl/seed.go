package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sourcesv1 "github.com/jdholdren/stockroom/api/sources/v1"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

// seedFile is the yaml layout of `importctl seed`:
//
//	sources:
//	  - name: Acme
//	    url: https://acme.example/feed.xml
//	    import_interval_hours: 12
//	    preferred_import_time: "06:00"
type seedFile struct {
	Sources []seedSource `yaml:"sources"`
}

type seedSource struct {
	Name                string  `yaml:"name"`
	URL                 string  `yaml:"url"`
	IsActive            *bool   `yaml:"is_active"`
	ImportIntervalHours *int    `yaml:"import_interval_hours"`
	PreferredImportTime *string `yaml:"preferred_import_time"`
}

// Validated the same way the api validates a create.
func (s seedSource) args() (stockroom.InsertSourceArgs, error) {
	req := sourcesv1.CreateSourceRequest{
		Name:                s.Name,
		URL:                 s.URL,
		IsActive:            s.IsActive,
		ImportIntervalHours: s.ImportIntervalHours,
		PreferredImportTime: s.PreferredImportTime,
	}
	if err := req.Validate(); err != nil {
		return stockroom.InsertSourceArgs{}, err
	}

	args := stockroom.InsertSourceArgs{
		Name:                s.Name,
		URL:                 s.URL,
		IsActive:            true,
		ImportIntervalHours: stockroom.DefaultImportIntervalHours,
	}
	if s.IsActive != nil {
		args.IsActive = *s.IsActive
	}
	if s.ImportIntervalHours != nil {
		args.ImportIntervalHours = *s.ImportIntervalHours
	}
	if s.PreferredImportTime != nil && *s.PreferredImportTime != "" {
		normalized, _ := stockroom.ParseTimeOfDay(*s.PreferredImportTime)
		args.PreferredImportTime = &normalized
	}

	return args, nil
}

func parseSeedFile(r io.Reader) ([]stockroom.InsertSourceArgs, error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error decoding seed file: %w", err)
	}

	all := make([]stockroom.InsertSourceArgs, 0, len(f.Sources))
	for i, s := range f.Sources {
		args, err := s.args()
		if err != nil {
			return nil, fmt.Errorf("source %d (%q): %w", i, s.Name, err)
		}
		all = append(all, args)
	}

	return all, nil
}

// Nothing is inserted unless the whole file is valid.
func seedSources(ctx context.Context, w io.Writer, repo stockroom.SourceRepo, r io.Reader) error {
	all, err := parseSeedFile(r)
	if err != nil {
		return err
	}

	for _, args := range all {
		src, err := repo.InsertSource(ctx, args)
		if err != nil {
			return fmt.Errorf("error inserting source %q: %w", args.Name, err)
		}
		fmt.Fprintf(w, "created source %s (%s)\n", src.ID, src.Name)
	}

	return nil
}

func newSeedCommand(d *deps) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create sources from a yaml file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("error opening seed file: %w", err)
			}
			defer f.Close()

			return seedSources(cmd.Context(), cmd.OutOrStdout(), d.repo, f)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "yaml file of sources")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
