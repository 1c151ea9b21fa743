// Package library stores generated assets in a directory. Every entry is a
// <id>.yml metadata file, plus a <id>.bin copy of the asset when the entry
// reference points to a local file.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/remeh/sizedwaitgroup"
	"gopkg.in/yaml.v3"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/tracker"
)

// Store implements tracker.Library on a directory.
type Store struct {
	dir string
}

var (
	ErrNotFound  = errors.New("library entry not found")
	ErrInvalidID = errors.New("invalid library id")
)

// Open returns a store in dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create library directory %v: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id, ext string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+ext), nil
}

// Save writes the entry and returns its id; an entry without an id gets a new
// one. Saving an existing id overwrites it.
func (s *Store) Save(ctx context.Context, entry tracker.LibraryEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = tahti.NewID()
	}
	if entry.Created.IsZero() {
		entry.Created = time.Now().UTC()
	}
	meta, err := s.path(entry.ID, ".yml")
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(entry.Ref); err == nil && info.Mode().IsRegular() {
		n, err := s.copyPayload(ctx, entry.ID, entry.Ref)
		if err != nil {
			return "", err
		}
		entry.Size = n
	}
	b, err := yaml.Marshal(&entry)
	if err != nil {
		return "", fmt.Errorf("could not marshal library entry: %w", err)
	}
	if err := os.WriteFile(meta, b, 0o644); err != nil {
		return "", fmt.Errorf("could not write library entry: %w", err)
	}
	log.Printf("library: saved %q (%s)", entry.Name, humanize.Bytes(uint64(entry.Size)))
	return entry.ID, nil
}

func (s *Store) copyPayload(ctx context.Context, id, src string) (int64, error) {
	dst, err := s.path(id, ".bin")
	if err != nil {
		return 0, err
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("could not open asset: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("could not create payload: %w", err)
	}
	n, err := io.Copy(out, ctxReader{ctx, in})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("could not copy asset: %w", err)
	}
	return n, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Payload returns the path of the stored copy of the asset, if there is one.
func (s *Store) Payload(id string) (string, bool) {
	p, err := s.path(id, ".bin")
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// List reads all entries matching the filter, oldest first. Unreadable
// metadata files are logged and skipped.
func (s *Store) List(ctx context.Context, filter tracker.LibraryFilter) ([]tracker.LibraryEntry, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("could not list library: %w", err)
	}
	var (
		mu      sync.Mutex
		entries []tracker.LibraryEntry
		total   int64
	)
	wg := sizedwaitgroup.New(runtime.NumCPU())
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add()
		go func(f string) {
			defer wg.Done()
			b, err := os.ReadFile(f)
			if err != nil {
				log.Printf("library: %v", err)
				return
			}
			var e tracker.LibraryEntry
			if err := yaml.Unmarshal(b, &e); err != nil {
				log.Printf("library: could not parse %s: %v", filepath.Base(f), err)
				return
			}
			if !filter.Match(e) {
				return
			}
			mu.Lock()
			entries = append(entries, e)
			total += e.Size
			mu.Unlock()
		}(f)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Created.Equal(entries[j].Created) {
			return entries[i].Created.Before(entries[j].Created)
		}
		return entries[i].ID < entries[j].ID
	})
	log.Printf("library: %d entries, %s", len(entries), humanize.Bytes(uint64(total)))
	return entries, nil
}

// Delete removes an entry and its payload.
func (s *Store) Delete(ctx context.Context, id string) error {
	meta, err := s.path(id, ".yml")
	if err != nil {
		return err
	}
	if err := os.Remove(meta); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	bin, _ := s.path(id, ".bin")
	if err := os.Remove(bin); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
