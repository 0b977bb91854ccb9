// Package overlay holds the freely positioned objects placed on top of
// flowed pages: images and text boxes, each anchored to exactly one page.
//
// The store is the single mutation point for object geometry. Transforms
// commit through ApplyGeometry; regeneration of the page list goes through
// Reanchor so no object is ever left pointing at a page that no longer
// exists.
package overlay

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/paperlay/paperlay/internal/geom"
	"github.com/paperlay/paperlay/pkg/errors"
)

// Kind discriminates overlay object types.
type Kind string

const (
	// KindImage is a raster or SVG image referenced by Source.
	KindImage Kind = "image"
	// KindTextBox is a free-floating text annotation.
	KindTextBox Kind = "textbox"
)

// Object is one overlay element anchored to a page. Fields mirror the
// sidecar JSON shape used for persistence by the surrounding application.
type Object struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Rotation  float64   `json:"rotation"`
	Opacity   float64   `json:"opacity"`
	PageIndex int       `json:"pageIndex"`
	Source    string    `json:"source,omitempty"` // image path, URL or data URI
	Text      string    `json:"text,omitempty"`   // textbox content
}

// Geometry returns the object's placement as a geometry value.
func (o *Object) Geometry() geom.Geometry {
	return geom.Geometry{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height, Rotation: o.Rotation}
}

// setGeometry writes the placement back, enforcing the minimum size floor.
func (o *Object) setGeometry(g geom.Geometry) {
	g.Width = geom.ClampSize(g.Width)
	g.Height = geom.ClampSize(g.Height)
	o.X, o.Y, o.Width, o.Height, o.Rotation = g.X, g.Y, g.Width, g.Height, g.Rotation
}

// NewImage creates an image object with a fresh id and full opacity.
func NewImage(source string, pageIndex int, g geom.Geometry) *Object {
	o := &Object{ID: uuid.New(), Kind: KindImage, Opacity: 1, PageIndex: pageIndex, Source: source}
	o.setGeometry(g)
	return o
}

// NewTextBox creates a text box object with a fresh id and full opacity.
func NewTextBox(text string, pageIndex int, g geom.Geometry) *Object {
	o := &Object{ID: uuid.New(), Kind: KindTextBox, Opacity: 1, PageIndex: pageIndex, Text: text}
	o.setGeometry(g)
	return o
}

// Store owns a document's overlay objects. Slice order is z-order: later
// objects draw above earlier ones.
type Store struct {
	mu      sync.RWMutex
	objects []*Object
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Insert appends the object at the top of the z-order.
func (s *Store) Insert(o *Object) error {
	if o == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil overlay object")
	}
	if o.Kind != KindImage && o.Kind != KindTextBox {
		return errors.New(errors.ErrCodeInvalidInput, "unknown overlay kind %q", o.Kind)
	}
	if o.PageIndex < 0 {
		return errors.New(errors.ErrCodeInvalidPage, "negative page index %d", o.PageIndex)
	}
	o.setGeometry(o.Geometry())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = append(s.objects, o)
	return nil
}

// Remove deletes the object with the given id, reporting whether it existed.
func (s *Store) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.objects {
		if o.ID == id {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a copy of the object with the given id.
func (s *Store) Get(id uuid.UUID) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.objects {
		if o.ID == id {
			return *o, true
		}
	}
	return Object{}, false
}

// All returns copies of every object in z-order.
func (s *Store) All() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Object, len(s.objects))
	for i, o := range s.objects {
		out[i] = *o
	}
	return out
}

// ForPage returns copies of the objects anchored to the page, in z-order.
func (s *Store) ForPage(pageIndex int) []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Object
	for _, o := range s.objects {
		if o.PageIndex == pageIndex {
			out = append(out, *o)
		}
	}
	return out
}

// Len returns the number of objects in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// ApplyGeometry commits a transformed geometry to the object with the given
// id. This is the update callback invoked by the transform controller on
// pointer-up.
func (s *Store) ApplyGeometry(id uuid.UUID, g geom.Geometry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.objects {
		if o.ID == id {
			o.setGeometry(g)
			return nil
		}
	}
	return errors.New(errors.ErrCodeResourceNotFound, "overlay object %s not found", id)
}

// SetOpacity sets an object's opacity, clamped to [0, 1].
func (s *Store) SetOpacity(id uuid.UUID, opacity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.objects {
		if o.ID == id {
			if opacity < 0 {
				opacity = 0
			} else if opacity > 1 {
				opacity = 1
			}
			o.Opacity = opacity
			return nil
		}
	}
	return errors.New(errors.ErrCodeResourceNotFound, "overlay object %s not found", id)
}

// Reanchor reconciles objects with a regenerated page list of the given
// length. Text boxes on vanished pages move to the last page; images on
// vanished pages are dropped, since their placement was tied to content that
// no longer exists. Returns the ids that were moved and dropped.
func (s *Store) Reanchor(pageCount int) (moved, dropped []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.objects[:0]
	for _, o := range s.objects {
		if pageCount > 0 && o.PageIndex < pageCount {
			kept = append(kept, o)
			continue
		}
		if pageCount > 0 && o.Kind == KindTextBox {
			o.PageIndex = pageCount - 1
			moved = append(moved, o.ID)
			kept = append(kept, o)
			continue
		}
		dropped = append(dropped, o.ID)
	}
	s.objects = kept
	return moved, dropped
}

// MarshalJSON encodes the store as a flat object array in z-order.
func (s *Store) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.objects)
}

// UnmarshalJSON replaces the store contents with the decoded object array.
func (s *Store) UnmarshalJSON(data []byte) error {
	var objects []*Object
	if err := json.Unmarshal(data, &objects); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = objects
	return nil
}

// SaveFile writes the store to a sidecar JSON file.
func (s *Store) SaveFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFile reads a sidecar JSON file into the store, replacing its contents.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := NewStore()
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to parse overlay sidecar %s", path)
	}
	return s, nil
}
