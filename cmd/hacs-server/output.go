package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hacs/hacs/internal/domain/modeling"
	"github.com/hacs/hacs/internal/platform/jsoncodec"
	engine "github.com/hacs/hacs/internal/platform/modeling"
)

// errInvalid is returned after an invalid resource or bundle has been
// reported, so the process exits non-zero without printing twice.
var errInvalid = errors.New("validation failed")

var (
	errorMark = color.RGB(229, 50, 50).Sprint("Error!")
	validMark = color.RGB(50, 108, 229).Sprint("Valid!")

	added    = color.New(color.FgGreen).SprintFunc()
	removed  = color.New(color.FgRed).SprintFunc()
	modified = color.New(color.FgYellow).SprintFunc()
	faint    = color.New(color.Faint).SprintFunc()
)

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(cmd *cobra.Command) *printer {
	format, _ := cmd.Flags().GetString("output")
	return &printer{w: cmd.OutOrStdout(), json: strings.EqualFold(format, "json")}
}

func (p *printer) println(a ...interface{}) {
	fmt.Fprintln(p.w, a...)
}

func (p *printer) printf(format string, a ...interface{}) {
	fmt.Fprintf(p.w, format, a...)
}

// result writes r as JSON, or calls human on success. A failed envelope is
// returned as an error.
func (p *printer) result(r engine.Result, human func(*printer)) error {
	if p.json {
		if err := p.writeJSON(r); err != nil {
			return err
		}
	} else if r.Success && human != nil {
		human(p)
	}
	if !r.Success {
		if r.Error != "" {
			return errors.New(r.Error)
		}
		return errors.New(r.Message)
	}
	return nil
}

func (p *printer) writeJSON(v interface{}) error {
	out, err := jsoncodec.MarshalIndent(v)
	if err != nil {
		return err
	}
	_, err = p.w.Write(append(out, '\n'))
	return err
}

// validation reports a ValidationData envelope and returns errInvalid when the
// subject is invalid.
func (p *printer) validation(subject string, r engine.Result) error {
	if err := p.result(r, func(p *printer) {
		data := r.Data.(*modeling.ValidationData)
		if data.Valid {
			p.println(validMark, subject+":", data.ResourceType, "has no issues.")
			return
		}
		for _, issue := range data.Issues {
			p.println(errorMark, subject+":", issue)
		}
	}); err != nil {
		return err
	}
	if data, ok := r.Data.(*modeling.ValidationData); ok && !data.Valid {
		return errInvalid
	}
	return nil
}

func (p *printer) describe(md *modeling.ModelDescription) {
	p.println(color.New(color.Bold).Sprint(md.ResourceType))
	for _, name := range md.FieldNames {
		info := md.Fields[name]
		marker := " "
		if info.Required {
			marker = "*"
		}
		p.printf("  %s %-24s %-16s %s\n", marker, name, info.Type, faint(info.Description))
	}
}

func (p *printer) diff(d *modeling.DiffData) {
	if len(d.Changes) == 0 {
		p.println("no changes")
		return
	}
	for _, c := range d.Changes {
		switch c.Type {
		case engine.DiffAdded:
			p.println(added("+ "+c.Path), formatValue(c.Value))
		case engine.DiffRemoved:
			p.println(removed("- "+c.Path), formatValue(c.Value))
		case engine.DiffModified:
			p.println(modified("~ "+c.Path), formatValue(c.Before), "->", formatValue(c.After))
		}
	}
	p.printf("%d added, %d removed, %d modified\n", d.Summary.Added, d.Summary.Removed, d.Summary.Modified)
}

func (p *printer) entries(entries []engine.BundleEntry) {
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = faint("(untitled)")
		}
		p.printf("%2d  %-32s %s/%s  %s\n", e.Priority, title, e.Resource.Type(), e.Resource.ID(), strings.Join(e.Tags, ","))
	}
}

func (p *printer) graph(res *engine.GraphTraversalResult) {
	p.println(color.New(color.Bold).Sprint(res.Start))
	for _, e := range res.Edges {
		p.printf("  %s --%s--> %s\n", e.From, e.Path, e.To)
	}
	for _, ref := range res.Unresolved {
		p.println(modified("  unresolved"), ref)
	}
	p.printf("%d edges, %d expanded, %d unresolved\n", len(res.Edges), len(res.Expanded), len(res.Unresolved))
}

func formatValue(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		out, err := jsoncodec.MarshalIndent(v)
		if err == nil {
			return strings.Join(strings.Fields(string(out)), " ")
		}
	}
	return fmt.Sprintf("%v", v)
}

// readFile decodes a JSON or YAML file into v. YAML is converted through JSON
// so json tags apply to both.
func readFile(name string, v interface{}) error {
	raw, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if raw, err = jsoncodec.MarshalIndent(doc); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := jsoncodec.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func readResource(name string) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := readFile(name, &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%s: expected an object", name)
	}
	return data, nil
}
