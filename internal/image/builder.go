package image

import "slices"

// SourceBuilder assembles a Source. The zero tag list is empty, not nil.
type SourceBuilder struct {
	source Source
}

// NewSourceBuilder starts a source named name.
func NewSourceBuilder(name string) *SourceBuilder {
	return &SourceBuilder{source: Source{Image: Image{Name: name}, Tags: []string{}}}
}

// SourceBuilderFrom starts from a copy of an existing source.
func SourceBuilderFrom(src *Source) *SourceBuilder {
	if src == nil {
		return NewSourceBuilder("")
	}
	return &SourceBuilder{source: *src.Clone()}
}

func (b *SourceBuilder) Description(description string) *SourceBuilder {
	b.source.Description = description
	return b
}

func (b *SourceBuilder) Width(width int) *SourceBuilder {
	b.source.Width = width
	return b
}

func (b *SourceBuilder) Height(height int) *SourceBuilder {
	b.source.Height = height
	return b
}

// Tags replaces the tag list. Duplicates are dropped, keeping the first
// occurrence.
func (b *SourceBuilder) Tags(tags ...string) *SourceBuilder {
	b.source.Tags = b.source.Tags[:0:0]
	for _, tag := range tags {
		b.AddTag(tag)
	}
	return b
}

// AddTag appends tag unless it is already present.
func (b *SourceBuilder) AddTag(tag string) *SourceBuilder {
	if !slices.Contains(b.source.Tags, tag) {
		b.source.Tags = append(b.source.Tags, tag)
	}
	return b
}

// Build returns an independent Source; the builder can keep being used.
func (b *SourceBuilder) Build() *Source {
	return b.source.Clone()
}

// TargetBuilder assembles a Target with the default sampler and checkpoint.
type TargetBuilder struct {
	target Target
}

// NewTargetBuilder starts a target named name.
func NewTargetBuilder(name string) *TargetBuilder {
	return &TargetBuilder{target: Target{
		Image:      Image{Name: name},
		Sampler:    DefaultSampler,
		Checkpoint: DefaultCheckpoint,
	}}
}

// TargetBuilderFrom starts from a copy of an existing target.
func TargetBuilderFrom(tgt *Target) *TargetBuilder {
	if tgt == nil {
		return NewTargetBuilder("")
	}
	return &TargetBuilder{target: *tgt}
}

func (b *TargetBuilder) Description(description string) *TargetBuilder {
	b.target.Description = description
	return b
}

func (b *TargetBuilder) Width(width int) *TargetBuilder {
	b.target.Width = width
	return b
}

func (b *TargetBuilder) Height(height int) *TargetBuilder {
	b.target.Height = height
	return b
}

func (b *TargetBuilder) Rating(rating int) *TargetBuilder {
	b.target.Rating = rating
	return b
}

func (b *TargetBuilder) Sampler(sampler Sampler) *TargetBuilder {
	b.target.Sampler = sampler
	return b
}

func (b *TargetBuilder) Checkpoint(checkpoint Checkpoint) *TargetBuilder {
	b.target.Checkpoint = checkpoint
	return b
}

func (b *TargetBuilder) Build() *Target {
	return b.target.Clone()
}
