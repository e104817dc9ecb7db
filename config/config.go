// Package config holds the architecture and latency parameters of the NPU.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Latencies are the fixed pipeline latencies, in cycles.
type Latencies struct {
	DPEMult      int `yaml:"dpe_mult"`
	DPEAdder     int `yaml:"dpe_adder"`
	RFWrite      int `yaml:"rf_write"`
	RFRead       int `yaml:"rf_read"`
	MRFToDPE     int `yaml:"mrf_to_dpe"`
	VRFToDPE     int `yaml:"vrf_to_dpe"`
	MVUAccum     int `yaml:"mvu_accum"`
	MVUReduction int `yaml:"mvu_reduction"`
	MFUAct       int `yaml:"mfu_act"`
	MFUAdd       int `yaml:"mfu_add"`
	MFUMul       int `yaml:"mfu_mul"`
	LDWriteBack  int `yaml:"ld_write_back"`
}

// Arch describes the shape of the NPU.
type Arch struct {
	Tiles int `yaml:"tiles"`
	DPEs  int `yaml:"dpes"`
	Lanes int `yaml:"lanes"`

	MVUVRFDepth  int `yaml:"mvu_vrf_depth"`
	MVUMRFDepth  int `yaml:"mvu_mrf_depth"`
	EVRFDepth    int `yaml:"evrf_depth"`
	MFUVRF0Depth int `yaml:"mfu_vrf0_depth"`
	MFUVRF1Depth int `yaml:"mfu_vrf1_depth"`
	FIFODepth    int `yaml:"fifo_depth"`

	// InputPrecision is the width, in bits, that values are narrowed to when
	// they are written back into the MVU vector register files.
	InputPrecision int `yaml:"input_precision"`

	Latency Latencies `yaml:"latency"`
}

// Default returns the reference NPU configuration.
func Default() Arch {
	a := Arch{
		Tiles:          7,
		DPEs:           40,
		Lanes:          40,
		MVUVRFDepth:    512,
		MVUMRFDepth:    1024,
		EVRFDepth:      512,
		MFUVRF0Depth:   512,
		MFUVRF1Depth:   512,
		FIFODepth:      512,
		InputPrecision: 8,
		Latency: Latencies{
			DPEMult:     2,
			DPEAdder:    1,
			RFWrite:     1,
			RFRead:      1,
			MRFToDPE:    8,
			VRFToDPE:    8,
			MVUAccum:    4,
			MFUAct:      3,
			MFUAdd:      3,
			MFUMul:      3,
			LDWriteBack: 5,
		},
	}
	a.Latency.MVUReduction = DefaultReductionLatency(a.Tiles)

	return a
}

// DefaultReductionLatency is the latency of the cross-tile adder tree.
func DefaultReductionLatency(tiles int) int {
	return ceilLog2(tiles) + 5
}

// Load reads a YAML file and overlays it on the default configuration.
// Leaving mvu_reduction unset derives it from the number of tiles.
func Load(path string) (Arch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Arch{}, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse overlays a YAML document on the default configuration.
func Parse(data []byte) (Arch, error) {
	a := Default()
	a.Latency.MVUReduction = 0

	if err := yaml.Unmarshal(data, &a); err != nil {
		return Arch{}, fmt.Errorf("parse config: %w", err)
	}

	if a.Latency.MVUReduction == 0 {
		a.Latency.MVUReduction = DefaultReductionLatency(a.Tiles)
	}

	if err := a.Validate(); err != nil {
		return Arch{}, err
	}

	return a, nil
}

// ErrInvalidArch is wrapped by every validation failure.
var ErrInvalidArch = errors.New("invalid architecture")

// Validate checks that the configuration describes a buildable NPU.
func (a Arch) Validate() error {
	sizes := []struct {
		name  string
		value int
	}{
		{"tiles", a.Tiles},
		{"dpes", a.DPEs},
		{"lanes", a.Lanes},
		{"mvu_vrf_depth", a.MVUVRFDepth},
		{"mvu_mrf_depth", a.MVUMRFDepth},
		{"evrf_depth", a.EVRFDepth},
		{"mfu_vrf0_depth", a.MFUVRF0Depth},
		{"mfu_vrf1_depth", a.MFUVRF1Depth},
		{"fifo_depth", a.FIFODepth},
		{"latency.dpe_mult", a.Latency.DPEMult},
		{"latency.rf_write", a.Latency.RFWrite},
		{"latency.rf_read", a.Latency.RFRead},
		{"latency.mvu_reduction", a.Latency.MVUReduction},
	}

	for _, s := range sizes {
		if s.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d",
				ErrInvalidArch, s.name, s.value)
		}
	}

	if a.DPEs%a.Lanes != 0 {
		return fmt.Errorf("%w: dpes (%d) must be a multiple of lanes (%d)",
			ErrInvalidArch, a.DPEs, a.Lanes)
	}

	if a.InputPrecision < 1 || a.InputPrecision > 31 {
		return fmt.Errorf("%w: input_precision must be in 1..31, got %d",
			ErrInvalidArch, a.InputPrecision)
	}

	return nil
}

// PrimeDSPs is the number of 10-lane DSP blocks that make up one DPE.
func (a Arch) PrimeDSPs() int {
	return (a.Lanes + 9) / 10
}

// GroupSize is the number of row blocks the MVU accumulates together.
func (a Arch) GroupSize() int {
	return 3 * a.PrimeDSPs()
}

// AccumSlots is the number of running sums an accumulator keeps.
func (a Arch) AccumSlots() int {
	return 2 * a.GroupSize()
}

// DPEResultLatency is the depth of the multiplier plus the adder tree.
func (a Arch) DPEResultLatency() int {
	return a.Latency.DPEMult + ceilLog2(a.PrimeDSPs())*a.Latency.DPEAdder
}

// OperandDelay is how long a DPE holds an operand set before it can use it.
func (a Arch) OperandDelay() int {
	return 3 * (1 + a.PrimeDSPs())
}

// DPEControlLatency is the delay of the register-select and VRF-enable
// signals from tile dispatch to the DPE.
func (a Arch) DPEControlLatency() int {
	return a.Latency.RFRead + a.Latency.MRFToDPE
}

// AccumLatency is the delay of the accumulate control from tile dispatch to
// the accumulator.
func (a Arch) AccumLatency() int {
	return a.DPEControlLatency() + a.OperandDelay() +
		a.DPEResultLatency() + a.Latency.MVUAccum
}

// MFULatency is the latency of the activation, add and multiply units.
func (a Arch) MFULatency() int {
	return a.Latency.MFUAct + a.Latency.MFUAdd + a.Latency.MFUMul
}

// RetireLatency is the delay of a retire pulse from the loader.
func (a Arch) RetireLatency() int {
	return a.Latency.LDWriteBack + 2
}

// NominalLatency is the sum of the fixed latencies along the longest path
// from a VLIW word entering the decoder to a vector leaving the loader,
// assuming no stalls.
func (a Arch) NominalLatency() int {
	l := a.Latency

	decode := 1 + 1
	mvu := a.AccumLatency() + 1 + l.MVUReduction + 1
	evrf := l.RFRead + 1 + 1
	mfu := l.RFRead + 1 + a.MFULatency() + 1

	return decode + mvu + evrf + 2*mfu
}

// Narrow truncates a value to the input precision and sign-extends it back
// to 32 bits.
func (a Arch) Narrow(v int32) int32 {
	shift := 32 - a.InputPrecision
	return (v << shift) >> shift
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}

	return int(math.Ceil(math.Log2(float64(n))))
}
