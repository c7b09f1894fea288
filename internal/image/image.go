package image

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Image holds the attributes shared by sources and targets.
type Image struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Width       int    `json:"width" yaml:"width"`
	Height      int    `json:"height" yaml:"height"`
}

// Source is an original image and the tags describing it.
type Source struct {
	Image `yaml:",inline"`
	Tags  []string `json:"tags" yaml:"tags"`
}

// Target is a derived variant of a source together with the rendering
// parameters that produced it.
type Target struct {
	Image      `yaml:",inline"`
	Rating     int        `json:"rating" yaml:"rating"`
	Sampler    Sampler    `json:"sampler" yaml:"sampler"`
	Checkpoint Checkpoint `json:"checkpoint" yaml:"checkpoint"`
}

func (i Image) validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("name must not be empty")
	}
	if i.Width < 0 {
		return fmt.Errorf("%s: width must be non-negative, got %d", i.Name, i.Width)
	}
	if i.Height < 0 {
		return fmt.Errorf("%s: height must be non-negative, got %d", i.Name, i.Height)
	}
	return nil
}

// Validate checks the record against the catalog's data constraints.
func (s *Source) Validate() error {
	if s == nil {
		return errors.New("source is nil")
	}
	return s.Image.validate()
}

// Clone returns a deep copy; mutating the copy never affects s.
func (s *Source) Clone() *Source {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Tags = append(make([]string, 0, len(s.Tags)), s.Tags...)
	return &clone
}

// Equal reports attribute-wise equality. Tags compare element-wise in order;
// a nil tag list equals an empty one.
func (s *Source) Equal(other *Source) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Image == other.Image && slices.Equal(s.Tags, other.Tags)
}

// HasTag reports whether tag is present.
func (s *Source) HasTag(tag string) bool {
	return s != nil && slices.Contains(s.Tags, tag)
}

// Validate checks the record against the catalog's data constraints.
func (t *Target) Validate() error {
	if t == nil {
		return errors.New("target is nil")
	}
	if err := t.Image.validate(); err != nil {
		return err
	}
	if !t.Sampler.Valid() {
		return fmt.Errorf("%s: unknown sampler %q", t.Name, t.Sampler)
	}
	if !t.Checkpoint.Valid() {
		return fmt.Errorf("%s: unknown checkpoint %q", t.Name, t.Checkpoint)
	}
	return nil
}

// Clone returns a copy of t.
func (t *Target) Clone() *Target {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// Equal reports attribute-wise equality.
func (t *Target) Equal(other *Target) bool {
	if t == nil || other == nil {
		return t == other
	}
	return *t == *other
}
