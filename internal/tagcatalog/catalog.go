// Package tagcatalog holds the closed set of technical tags a question may
// carry. A Catalog is built once at startup and never mutated afterwards.
package tagcatalog

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/clubqa/internal/apperr"
	"github.com/starford/clubqa/internal/models"
)

// Defaults is the catalog used when the configuration lists no tags.
var Defaults = []models.Tag{
	{ID: 1, Name: "Web Hacking", Style: "tag-web"},
	{ID: 2, Name: "Reversing", Style: "tag-rev"},
	{ID: 3, Name: "Pwnable", Style: "tag-pwn"},
	{ID: 4, Name: "Cryptography", Style: "tag-crypto"},
	{ID: 5, Name: "Forensics", Style: "tag-forensics"},
	{ID: 6, Name: "Network", Style: "tag-network"},
	{ID: 7, Name: "Mobile", Style: "tag-mobile"},
	{ID: 8, Name: "Programming", Style: "tag-dev"},
	{ID: 9, Name: "AI", Style: "tag-ai"},
	{ID: 10, Name: "Etc", Style: "tag-etc"},
}

// Catalog is an immutable, ordered tag set.
type Catalog struct {
	tags   []models.Tag
	byID   map[int64]models.Tag
	byName map[string]models.Tag
}

// New validates tags and builds a Catalog. Ids and names must be unique.
func New(tags []models.Tag) (*Catalog, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("tagcatalog: at least one tag is required")
	}
	c := &Catalog{
		tags:   make([]models.Tag, 0, len(tags)),
		byID:   make(map[int64]models.Tag, len(tags)),
		byName: make(map[string]models.Tag, len(tags)),
	}
	for i := range tags {
		t := tags[i]
		t.Name = strings.TrimSpace(t.Name)
		if err := validation.ValidateStruct(&t,
			validation.Field(&t.ID, validation.Required, validation.Min(int64(1))),
			validation.Field(&t.Name, validation.Required, validation.RuneLength(1, 64)),
		); err != nil {
			return nil, fmt.Errorf("tagcatalog: tag #%d: %w", i, err)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("tagcatalog: duplicate tag id %d", t.ID)
		}
		key := strings.ToLower(t.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("tagcatalog: duplicate tag name %q", t.Name)
		}
		c.byID[t.ID] = t
		c.byName[key] = t
		c.tags = append(c.tags, t)
	}
	return c, nil
}

// MustDefault returns the built-in catalog.
func MustDefault() *Catalog {
	c, err := New(Defaults)
	if err != nil {
		panic(err)
	}
	return c
}

// List returns a copy of every tag in catalog order.
func (c *Catalog) List() []models.Tag {
	out := make([]models.Tag, len(c.tags))
	copy(out, c.tags)
	return out
}

// Lookup resolves a tag id.
func (c *Catalog) Lookup(id int64) (models.Tag, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// LookupName resolves a tag by display name, ignoring case.
func (c *Catalog) LookupName(name string) (models.Tag, bool) {
	t, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Resolve maps ids to tags, skipping ids the catalog does not know.
func (c *Catalog) Resolve(ids []int64) []models.Tag {
	out := make([]models.Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := c.byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// ValidateSelection checks a tag selection for question creation and
// returns it deduplicated in first-seen order.
func (c *Catalog) ValidateSelection(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation(apperr.CodeEmptySelection, "select at least one tag")
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			return nil, apperr.Validation(apperr.CodeUnknownTag, fmt.Sprintf("unknown tag id %d", id))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// ValidateFilter checks tag ids used as a search filter. An empty filter is
// valid and matches every question.
func (c *Catalog) ValidateFilter(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return c.ValidateSelection(ids)
}
