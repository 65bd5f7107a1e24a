package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"netattack-sim/internal/telemetry"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Render executes the embedded Grafana dashboard templates and writes the
// results to outDir. Templates may call env to pull datasource ids from the
// environment and stepTable/episodeTable for the configured table names.
func Render(outDir string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
		"stepTable":    func() string { return telemetry.StepTableName },
		"episodeTable": func() string { return telemetry.EpisodeTableName },
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, e := range names {
		t, err := template.New(e.Name()).Funcs(funcMap).ParseFS(templates, "templates/"+e.Name())
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(e.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, nil); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
