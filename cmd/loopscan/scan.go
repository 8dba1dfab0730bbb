package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
	"github.com/ewilliams-labs/loopmatch/internal/core/query"
	"github.com/ewilliams-labs/loopmatch/internal/worker"
)

// entry is a catalog row plus the file it was read from.
type entry struct {
	item domain.CatalogItem
	path string
}

var separators = strings.NewReplacer("_", " ", "-", " ", ".", " ")

// collect walks root for audio files the limits accept and describes each
// from its path, tags and filename. Hidden directories are skipped.
func collect(root, urlPrefix string, limits domain.Limits, log zerolog.Logger) ([]entry, error) {
	var out []entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Name()), "."))
		if ext == "" || !limits.Accepts(ext) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, entry{item: describe(path, filepath.ToSlash(rel), urlPrefix), path: path})
		return nil
	})
	return out, err
}

func describe(path, rel, urlPrefix string) domain.CatalogItem {
	filename := filepath.Base(rel)
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	bpm, key := worker.ParseFilename(filename)

	name := tagTitle(path)
	if name == "" {
		name = stem
	}

	var category string
	if dir := filepath.Dir(filepath.FromSlash(rel)); dir != "." {
		category = strings.ToLower(filepath.Base(dir))
	}

	return domain.CatalogItem{
		// stable across rescans so upserts hit the same row
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(rel)).String(),
		Filename: filename,
		Name:     name,
		BPM:      bpm,
		Key:      key,
		Category: category,
		DrumType: query.ExtractFilters(separators.Replace(stem)).LoopType,
		URL:      strings.TrimSuffix(urlPrefix, "/") + "/" + rel,
	}
}

func tagTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(m.Title())
}

// pending picks the stored rows still missing tempo or key that have a
// file on disk. force selects every row with a file and lets analysis
// overwrite what is stored.
func pending(stored []domain.CatalogItem, scanned []entry, force bool) []worker.Job {
	paths := make(map[string]string, len(scanned))
	for _, e := range scanned {
		paths[e.item.ID] = e.path
	}
	var jobs []worker.Job
	for _, it := range stored {
		path, ok := paths[it.ID]
		if !ok {
			continue
		}
		switch {
		case force:
			jobs = append(jobs, worker.Job{SampleID: it.ID, Path: path})
		case it.BPM == 0 || it.Key == "":
			jobs = append(jobs, worker.Job{SampleID: it.ID, Path: path, KnownBPM: it.BPM, KnownKey: it.Key})
		}
	}
	return jobs
}
