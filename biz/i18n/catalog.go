// Package i18n holds the message catalog used by the tool handlers and the CLI.
//
// Each locale directory under locales/ contains one or more YAML files. Files
// are merged in lexical order and nested keys are flattened with dots, so
// commons.msg.update_success names the leaf under commons -> msg.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales
var embedded embed.FS

const DefaultLocale = "en"

// Catalog is immutable after Load and safe for concurrent use.
type Catalog struct {
	tags    []language.Tag
	names   []string
	tables  []map[string]string
	matcher language.Matcher
}

// Load builds a catalog from the embedded locales.
func Load() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadFS builds a catalog from fsys, where each top-level directory is a
// locale. The default locale must be present.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		// default first, the matcher falls back to index 0
		if names[i] == DefaultLocale || names[j] == DefaultLocale {
			return names[i] == DefaultLocale
		}
		return names[i] < names[j]
	})
	if len(names) == 0 || names[0] != DefaultLocale {
		return nil, fmt.Errorf("default locale %q not found", DefaultLocale)
	}

	c := &Catalog{}
	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", name, err)
		}
		table, err := loadTable(fsys, name)
		if err != nil {
			return nil, err
		}
		c.tags = append(c.tags, tag)
		c.names = append(c.names, name)
		c.tables = append(c.tables, table)
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func loadTable(fsys fs.FS, dir string) (map[string]string, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	table := map[string]string{}
	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		flatten("", doc, table)
	}
	return table, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Locales returns the available locale names, default first.
func (c *Catalog) Locales() []string {
	return append([]string(nil), c.names...)
}

// Translator picks the closest available locale to the requested one.
// Unknown or empty locales resolve to the default.
func (c *Catalog) Translator(locale string) *Translator {
	idx := 0
	if locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"); locale != "" {
		if tag, err := language.Parse(locale); err == nil {
			_, i, conf := c.matcher.Match(tag)
			if conf != language.No {
				idx = i
			}
		}
	}
	return &Translator{locale: c.names[idx], table: c.tables[idx], fallback: c.tables[0]}
}

type Translator struct {
	locale   string
	table    map[string]string
	fallback map[string]string
}

func (t *Translator) Locale() string {
	return t.locale
}

// T looks up key and substitutes {0}, {1}... with args. A key missing from the
// selected locale falls back to the default locale, then to the key itself.
func (t *Translator) T(key string, args ...any) string {
	msg, ok := t.table[key]
	if !ok {
		if msg, ok = t.fallback[key]; !ok {
			msg = key
		}
	}
	if len(args) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(args)*2)
	for i, arg := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", fmt.Sprint(arg))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
