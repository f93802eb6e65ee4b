// Command genconfig writes config.default.toml: the encoded
// [config.ExampleConfig] annotated with [config.ConfigDocs].
//
// It runs via go generate from internal/config, so the default output path
// is relative to that directory.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/editorcord/internal/config"
)

func main() {
	outPath := flag.String("o", "../../config.default.toml", "output file")
	flag.Parse()

	text, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *outPath)
}

var header = []string{
	"# ///////////////////////////////////////////////",
	"# Editorcord Configuration",
	"# ///////////////////////////////////////////////",
	"",
}

// render encodes cfg and weaves docs in as comments. Documented keys the
// encoder left out (omitempty) appear as commented examples at the end of
// their section.
func render(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	a := &annotator{docs: docs, seen: map[string]bool{}, out: slices.Clone(header)}
	for _, line := range strings.Split(raw.String(), "\n") {
		a.add(strings.TrimSpace(line))
	}
	a.flushOmitted()

	return strings.TrimRight(strings.Join(a.out, "\n"), "\n") + "\n", nil
}

// annotator accumulates output lines while tracking the current table.
type annotator struct {
	docs    map[string]config.FieldDoc
	seen    map[string]bool
	section string
	out     []string
}

func (a *annotator) add(line string) {
	switch {
	case line == "":
		return
	case strings.HasPrefix(line, "[") && !strings.HasPrefix(line, "[["):
		a.flushOmitted()
		a.section = strings.Trim(line, "[] ")
		a.out = append(a.out, "", "# ///// "+sectionTitle(a.section)+" /////", "")
		a.comment(a.docs[a.section].Comment)
		a.out = append(a.out, line)
	case strings.HasPrefix(line, "#") || !strings.Contains(line, "="):
		a.out = append(a.out, line)
	default:
		key, _, _ := strings.Cut(line, "=")
		path := a.qualify(strings.TrimSpace(key))
		a.seen[path] = true
		doc := a.docs[path]
		a.comment(doc.Comment)
		a.out = append(a.out, line)
		for _, alt := range doc.Alternatives {
			a.out = append(a.out, "# "+alt)
		}
	}
}

func (a *annotator) qualify(key string) string {
	if a.section == "" {
		return key
	}
	return a.section + "." + key
}

func (a *annotator) comment(text string) {
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		a.out = append(a.out, "# "+l)
	}
}

// flushOmitted emits documented direct children of the current section
// that the encoder did not write, in key order.
func (a *annotator) flushOmitted() {
	if a.section == "" {
		return
	}
	prefix := a.section + "."
	var missing []string
	for path := range a.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || a.seen[path] {
			continue
		}
		missing = append(missing, path)
	}
	slices.Sort(missing)

	for _, path := range missing {
		doc := a.docs[path]
		a.out = append(a.out, "")
		a.comment(doc.Comment)
		for _, alt := range doc.Alternatives {
			a.out = append(a.out, "# "+alt)
		}
		a.seen[path] = true
	}
}

// sectionTitle capitalizes the last segment of a dotted table name.
func sectionTitle(section string) string {
	last := section[strings.LastIndex(section, ".")+1:]
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
