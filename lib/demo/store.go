package demo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrVideoNotFound is returned when no video has the requested ID.
var ErrVideoNotFound = errors.New("demo: video not found")

// Sort orders of a listing.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortAZ     = "az"
	SortZA     = "za"
)

// Sorts lists the sort orders in the order the search form offers them.
var Sorts = []string{SortNewest, SortOldest, SortAZ, SortZA}

var sortLabels = map[string]string{
	SortNewest: "Newest",
	SortOldest: "Oldest",
	SortAZ:     "Title A-Z",
	SortZA:     "Title Z-A",
}

// Video is one catalogue entry.
type Video struct {
	ID               uint
	Title            string
	Description      string
	OriginalFileName string
	Tags             []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasTag reports whether the video carries tag.
func (v Video) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Filter narrows a listing.
type Filter struct {
	// Text matches title or description, case-insensitively.
	Text string
	// Tags must all be present.
	Tags []string
	Sort string
}

// Store is an in-memory video catalogue.
type Store struct {
	mu     sync.RWMutex
	videos map[uint]*Video
	nextID uint
	now    func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		videos: make(map[uint]*Video),
		nextID: 1,
		now:    time.Now,
	}
}

// Seed adds n sample videos.
func (s *Store) Seed(n int) {
	for i := range n {
		tags := []string{"sample"}
		if i%3 == 0 {
			tags = append(tags, "featured")
		}
		s.Add(Video{
			Title:            fmt.Sprintf("Sample video %d", i+1),
			Description:      fmt.Sprintf("Sample clip number %d", i+1),
			OriginalFileName: fmt.Sprintf("sample-%d.mp4", i+1),
			Tags:             tags,
		})
	}
}

// Add stores v under a new ID and returns the stored copy.
func (s *Store) Add(v Video) Video {
	s.mu.Lock()
	defer s.mu.Unlock()

	v.ID = s.nextID
	s.nextID++

	now := s.now()
	v.CreatedAt = now
	v.UpdatedAt = now
	v.Tags = append([]string(nil), v.Tags...)
	s.videos[v.ID] = &v
	return v
}

// Get returns a video by ID.
func (s *Store) Get(id uint) (Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.videos[id]
	if !ok {
		return Video{}, ErrVideoNotFound
	}
	return *v, nil
}

// Update replaces the editable fields of a video.
func (s *Store) Update(id uint, title, description string, tags []string) (Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[id]
	if !ok {
		return Video{}, ErrVideoNotFound
	}
	v.Title = title
	v.Description = description
	v.Tags = append([]string(nil), tags...)
	v.UpdatedAt = s.now()
	return *v, nil
}

// Delete removes a video by ID.
func (s *Store) Delete(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[id]; !ok {
		return ErrVideoNotFound
	}
	delete(s.videos, id)
	return nil
}

// List returns one page of the videos matching f and the number of matches.
func (s *Store) List(f Filter, limit, offset int) ([]Video, int, error) {
	less, err := sortFunc(f.Sort)
	if err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	var matched []Video
	for _, v := range s.videos {
		if f.matches(*v) {
			matched = append(matched, *v)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return less(matched[i], matched[j])
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return matched[offset:end], total, nil
}

// Len returns the number of stored videos.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.videos)
}

func (f Filter) matches(v Video) bool {
	for _, tag := range f.Tags {
		if !v.HasTag(tag) {
			return false
		}
	}
	if f.Text == "" {
		return true
	}
	text := strings.ToLower(f.Text)
	return strings.Contains(strings.ToLower(v.Title), text) ||
		strings.Contains(strings.ToLower(v.Description), text)
}

// sortFunc returns the ordering for a sort name. IDs break ties so that
// videos created within the same clock tick keep a stable order.
func sortFunc(name string) (func(a, b Video) bool, error) {
	switch name {
	case SortNewest, "":
		return func(a, b Video) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}, nil
	case SortOldest:
		return func(a, b Video) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}, nil
	case SortAZ:
		return func(a, b Video) bool {
			if a.Title != b.Title {
				return a.Title < b.Title
			}
			return a.ID < b.ID
		}, nil
	case SortZA:
		return func(a, b Video) bool {
			if a.Title != b.Title {
				return a.Title > b.Title
			}
			return a.ID > b.ID
		}, nil
	}
	return nil, fmt.Errorf("demo: unsupported sort %q", name)
}

// splitTags parses a comma separated tag list.
func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
