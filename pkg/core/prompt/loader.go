package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"
)

//go:embed prompts
var defaultPrompts embed.FS

// LoadDefaults registers the prompts embedded in the binary.
func LoadDefaults(r *Registry) error {
	return loadPrompts(r, defaultPrompts, "prompts")
}

// LoadFromDirectory loads prompt overrides from a directory structure
// Expected structure:
//
//	baseDir/
//	  prompts/
//	    category1/
//	      prompt1.json
func LoadFromDirectory(r *Registry, baseDir string) error {
	if err := loadPrompts(r, os.DirFS(baseDir), "prompts"); err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	return nil
}

// loadPrompts recursively loads all .json files under root
func loadPrompts(r *Registry, fsys fs.FS, root string) error {
	if _, err := fs.Stat(fsys, root); err != nil {
		return fmt.Errorf("prompts directory not found: %s", root)
	}

	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		var pt PromptTemplate
		if err := json.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}

		// Auto-generate ID from path if not specified
		if pt.ID == "" {
			pt.ID = generateIDFromPath(p, root)
		}
		if pt.Category == "" {
			pt.Category = detectCategory(p, root)
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		return nil
	})
}

// generateIDFromPath creates a prompt ID from the file path
// e.g., "prompts/analysis/business_summary.json" -> "analysis.business_summary"
func generateIDFromPath(p string, root string) string {
	rel := strings.TrimPrefix(p, root+"/")
	rel = strings.TrimSuffix(rel, ".json")
	return strings.ReplaceAll(rel, "/", ".")
}

// detectCategory extracts the category from the folder structure
func detectCategory(p string, root string) string {
	parts := strings.Split(strings.TrimPrefix(p, root+"/"), "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// RenderUserPrompt executes the user prompt template with the given context
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	if pt.UserPromptTmpl == "" {
		return "", nil
	}

	tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.Variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
