package image

import (
	"fmt"
	"strings"
)

// Sampler identifies the diffusion sampler a target was rendered with.
type Sampler string

const (
	SamplerEulerA         Sampler = "EULER_A"
	SamplerEuler          Sampler = "EULER"
	SamplerLMS            Sampler = "LMS"
	SamplerHeun           Sampler = "HEUN"
	SamplerDPM2           Sampler = "DPM2"
	SamplerDPM2A          Sampler = "DPM2_A"
	SamplerDPMPP2SA       Sampler = "DPM_PP_2S_A"
	SamplerDPMPP2M        Sampler = "DPM_PP_2M"
	SamplerDPMPPSDE       Sampler = "DPM_PP_SDE"
	SamplerDPMFast        Sampler = "DPM_FAST"
	SamplerDPMAdaptive    Sampler = "DPM_ADAPTIVE"
	SamplerLMSKarras      Sampler = "LMS_KARRAS"
	SamplerDPM2Karras     Sampler = "DPM2_KARRAS"
	SamplerDPM2AKarras    Sampler = "DPM2_A_KARRAS"
	SamplerDPMPP2MKarras  Sampler = "DPM_PP_2M_KARRAS"
	SamplerDPMPPSDEKarras Sampler = "DPM_PP_SDE_KARRAS"
	SamplerDDIM           Sampler = "DDIM"
	SamplerPLMS           Sampler = "PLMS"
)

// DefaultSampler is applied by NewTargetBuilder.
const DefaultSampler = SamplerEulerA

var samplers = []Sampler{
	SamplerEulerA,
	SamplerEuler,
	SamplerLMS,
	SamplerHeun,
	SamplerDPM2,
	SamplerDPM2A,
	SamplerDPMPP2SA,
	SamplerDPMPP2M,
	SamplerDPMPPSDE,
	SamplerDPMFast,
	SamplerDPMAdaptive,
	SamplerLMSKarras,
	SamplerDPM2Karras,
	SamplerDPM2AKarras,
	SamplerDPMPP2MKarras,
	SamplerDPMPPSDEKarras,
	SamplerDDIM,
	SamplerPLMS,
}

// Samplers returns every known sampler in declaration order.
func Samplers() []Sampler {
	out := make([]Sampler, len(samplers))
	copy(out, samplers)
	return out
}

func (s Sampler) String() string { return string(s) }

// Valid reports whether s is a member of the sampler set.
func (s Sampler) Valid() bool {
	for _, known := range samplers {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSampler accepts the canonical name in any case, with '-' or ' ' in
// place of '_'.
func ParseSampler(value string) (Sampler, error) {
	candidate := Sampler(canonicalEnum(value))
	if !candidate.Valid() {
		return "", fmt.Errorf("unknown sampler %q", value)
	}
	return candidate, nil
}

// Checkpoint identifies the model checkpoint a target was rendered with.
type Checkpoint string

const (
	CheckpointSD             Checkpoint = "SD"
	CheckpointSDInpainting   Checkpoint = "SD_INPAINTING"
	CheckpointSD2            Checkpoint = "SD2"
	CheckpointSD2Inpainting  Checkpoint = "SD2_INPAINTING"
	CheckpointSDXL           Checkpoint = "SDXL"
	CheckpointSDXLInpainting Checkpoint = "SDXL_INPAINTING"
)

// DefaultCheckpoint is applied by NewTargetBuilder.
const DefaultCheckpoint = CheckpointSD

var checkpoints = []Checkpoint{
	CheckpointSD,
	CheckpointSDInpainting,
	CheckpointSD2,
	CheckpointSD2Inpainting,
	CheckpointSDXL,
	CheckpointSDXLInpainting,
}

// Checkpoints returns every known checkpoint in declaration order.
func Checkpoints() []Checkpoint {
	out := make([]Checkpoint, len(checkpoints))
	copy(out, checkpoints)
	return out
}

func (c Checkpoint) String() string { return string(c) }

// Valid reports whether c is a member of the checkpoint set.
func (c Checkpoint) Valid() bool {
	for _, known := range checkpoints {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCheckpoint accepts the canonical name in any case, with '-' or ' ' in
// place of '_'.
func ParseCheckpoint(value string) (Checkpoint, error) {
	candidate := Checkpoint(canonicalEnum(value))
	if !candidate.Valid() {
		return "", fmt.Errorf("unknown checkpoint %q", value)
	}
	return candidate, nil
}

func canonicalEnum(value string) string {
	value = strings.TrimSpace(value)
	value = strings.NewReplacer("-", "_", " ", "_").Replace(value)
	return strings.ToUpper(value)
}
