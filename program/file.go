package program

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Number of integer fields on each line of a VLIW word.
const (
	mvuFields  = 8
	evrfFields = 8
	mfuFields  = 13
	ldFields   = 15
)

var stageNames = [5]string{"mvu", "evrf", "mfu0", "mfu1", "ld"}
var stageFields = [5]int{mvuFields, evrfFields, mfuFields, mfuFields, ldFields}

// Parse reads an instruction stream. Every VLIW word takes five lines, in
// the order MVU, EVRF, MFU0, MFU1, LD. Blank lines are ignored.
func Parse(r io.Reader) ([]VLIW, error) {
	var (
		prog  []VLIW
		lines [5][]int
		stage int
	)

	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields, err := parseFields(text, stageFields[stage])
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w",
				lineNum, stageNames[stage], err)
		}

		lines[stage] = fields
		stage++

		if stage == len(lines) {
			prog = append(prog, decodeWord(lines))
			stage = 0
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if stage != 0 {
		return nil, fmt.Errorf("incomplete instruction at end of stream: "+
			"got %d of 5 lines", stage)
	}

	return prog, nil
}

// LoadFile reads an instruction file from disk.
func LoadFile(path string) ([]VLIW, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instruction file: %w", err)
	}
	defer f.Close()

	prog, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return prog, nil
}

func parseFields(text string, want int) ([]int, error) {
	tokens := strings.Fields(text)
	if len(tokens) != want {
		return nil, fmt.Errorf("expected %d fields, got %d", want, len(tokens))
	}

	fields := make([]int, want)
	for i, tok := range tokens {
		v, err := strconv.ParseUint(tok, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}

		fields[i] = int(v)
	}

	return fields, nil
}

func decodeWord(l [5][]int) VLIW {
	return VLIW{
		MVU:  decodeMVU(l[0]),
		EVRF: decodeEVRF(l[1]),
		MFU0: decodeMFU(l[2]),
		MFU1: decodeMFU(l[3]),
		LD:   decodeLD(l[4]),
	}
}

func decodeMVU(f []int) MVUMacroOp {
	return MVUMacroOp{
		Op:      f[0],
		VRFAddr: [3]int{f[1], f[2], f[3]},
		VSize:   f[4],
		MRFAddr: f[5],
		MSize:   f[6],
		Tag:     f[7],
	}
}

func decodeEVRF(f []int) EVRFMacroOp {
	return EVRFMacroOp{
		Op:      f[0],
		Src:     f[1],
		VRFAddr: [3]int{f[2], f[3], f[4]},
		VSize:   f[5],
		Batch:   f[6],
		Tag:     f[7],
	}
}

func decodeMFU(f []int) MFUMacroOp {
	return MFUMacroOp{
		Op:       f[0],
		VSize:    f[1],
		ActOp:    ActOp(f[2]),
		AddOp:    AddOp(f[3]),
		VRF0Addr: [3]int{f[4], f[5], f[6]},
		MulOp:    MulOp(f[7]),
		VRF1Addr: [3]int{f[8], f[9], f[10]},
		Batch:    f[11],
		Tag:      f[12],
	}
}

func decodeLD(f []int) LDMacroOp {
	return LDMacroOp{
		Op:    f[0],
		Src:   f[1],
		VSize: f[2],
		Dst: [2]LDDest{
			{Valid: f[3] != 0, ID: f[4], Addr: [3]int{f[5], f[6], f[7]}},
			{Valid: f[8] != 0, ID: f[9], Addr: [3]int{f[10], f[11], f[12]}},
		},
		Batch:         f[13],
		WriteToOutput: f[14] != 0,
	}
}

// Write encodes a program in the same format Parse reads.
func Write(w io.Writer, prog []VLIW) error {
	bw := bufio.NewWriter(w)

	for _, word := range prog {
		for _, fields := range encodeWord(word) {
			if err := writeFields(bw, fields); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// WriteFile writes a program to disk, replacing any existing file.
func WriteFile(path string, prog []VLIW) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create instruction file: %w", err)
	}

	if err := Write(f, prog); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}

func writeFields(w *bufio.Writer, fields []int) error {
	strs := make([]string, len(fields))
	for i, v := range fields {
		strs[i] = strconv.Itoa(v)
	}

	_, err := w.WriteString(strings.Join(strs, " ") + "\n")

	return err
}

func encodeWord(word VLIW) [5][]int {
	m := word.MVU
	e := word.EVRF
	ld := word.LD

	return [5][]int{
		{m.Op, m.VRFAddr[0], m.VRFAddr[1], m.VRFAddr[2],
			m.VSize, m.MRFAddr, m.MSize, m.Tag},
		{e.Op, e.Src, e.VRFAddr[0], e.VRFAddr[1], e.VRFAddr[2],
			e.VSize, e.Batch, e.Tag},
		encodeMFU(word.MFU0),
		encodeMFU(word.MFU1),
		{ld.Op, ld.Src, ld.VSize,
			boolToInt(ld.Dst[0].Valid), ld.Dst[0].ID,
			ld.Dst[0].Addr[0], ld.Dst[0].Addr[1], ld.Dst[0].Addr[2],
			boolToInt(ld.Dst[1].Valid), ld.Dst[1].ID,
			ld.Dst[1].Addr[0], ld.Dst[1].Addr[1], ld.Dst[1].Addr[2],
			ld.Batch, boolToInt(ld.WriteToOutput)},
	}
}

func encodeMFU(m MFUMacroOp) []int {
	return []int{m.Op, m.VSize, int(m.ActOp), int(m.AddOp),
		m.VRF0Addr[0], m.VRF0Addr[1], m.VRF0Addr[2], int(m.MulOp),
		m.VRF1Addr[0], m.VRF1Addr[1], m.VRF1Addr[2], m.Batch, m.Tag}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
