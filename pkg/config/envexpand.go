package config

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv substitutes {{.VAR}} references in raw YAML with environment
// variable values. Template syntax avoids colliding with $ in regexes and
// passwords. Unset variables expand to the empty string; on any template
// error the original data is returned unchanged so the YAML parser reports
// the real problem.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		slog.Warn("Config env expansion skipped", "error", err)
		return data
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		slog.Warn("Config env expansion skipped", "error", err)
		return data
	}
	return buf.Bytes()
}
