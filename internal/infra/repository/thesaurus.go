package repository

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/patrickmn/go-cache"
)

const thesauriCacheKey = "thesauri"

// ThesaurusRepository lists the thesauri found under a directory laid out as
// <type>/thesauri/<category>/<name>.rdf.
type ThesaurusRepository struct {
	dir   string
	cache *cache.Cache
}

func NewThesaurusRepository(dir string) *ThesaurusRepository {
	return &ThesaurusRepository{
		dir:   dir,
		cache: cache.New(10*time.Minute, 15*time.Minute),
	}
}

type thesaurus struct {
	key      string
	dname    string
	filename string
	title    string
}

// Snapshot returns a fresh <thesauri> element; callers may attach it anywhere.
func (r *ThesaurusRepository) Snapshot(ctx context.Context) (*etree.Element, error) {
	var list []thesaurus
	if cached, found := r.cache.Get(thesauriCacheKey); found {
		list = cached.([]thesaurus)
	} else {
		scanned, err := r.scan(ctx)
		if err != nil {
			return nil, err
		}
		list = scanned
		r.cache.Set(thesauriCacheKey, list, cache.DefaultExpiration)
	}

	root := etree.NewElement("thesauri")
	for _, t := range list {
		el := root.CreateElement("thesaurus")
		el.CreateElement("key").SetText(t.key)
		el.CreateElement("dname").SetText(t.dname)
		el.CreateElement("filename").SetText(t.filename)
		el.CreateElement("title").SetText(t.title)
	}
	return root, nil
}

// Invalidate drops the cached listing.
func (r *ThesaurusRepository) Invalidate() {
	r.cache.Delete(thesauriCacheKey)
}

func (r *ThesaurusRepository) scan(ctx context.Context) ([]thesaurus, error) {
	var list []thesaurus
	if r.dir == "" {
		return list, nil
	}

	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".rdf") {
			return nil
		}
		rel, err := filepath.Rel(r.dir, path)
		if err != nil {
			return err
		}
		list = append(list, describeThesaurus(ctx, path, rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		slog.WarnContext(
			ctx, "thesaurus directory does not exist",
			slog.String("dir", r.dir),
			slog.String("module", "thesaurus"),
		)
		return list, nil
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(list, func(i, j int) bool { return list[i].key < list[j].key })
	return list, nil
}

func describeThesaurus(ctx context.Context, path, rel string) thesaurus {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	filename := parts[len(parts)-1]
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	t := thesaurus{filename: filename, title: name}
	if len(parts) >= 4 && parts[1] == "thesauri" {
		t.dname = parts[2]
		t.key = parts[0] + "." + parts[2] + "." + name
	} else {
		t.key = strings.Join(append(parts[:len(parts)-1:len(parts)-1], name), ".")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		slog.WarnContext(
			ctx, "failed to read thesaurus",
			slog.String("path", path),
			slog.String("error", err.Error()),
			slog.String("module", "thesaurus"),
		)
		return t
	}
	if title := doc.FindElement("//ConceptScheme/title"); title != nil {
		if text := strings.TrimSpace(title.Text()); text != "" {
			t.title = text
		}
	}
	return t
}
