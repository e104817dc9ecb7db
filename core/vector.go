package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// A Vector is one lane vector, the unit of data moved between pipeline
// stages. Vectors in flight are shared between readers and must not be
// modified in place.
type Vector []int32

// Zeros returns a vector of n zero lanes.
func Zeros(n int) Vector {
	return make(Vector, n)
}

// Equal returns true if both vectors hold the same lanes.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}

	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}

	return true
}

func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatInt(int64(x), 10)
	}

	return "[" + strings.Join(parts, " ") + "]"
}

// Dot returns the wrapping 32-bit dot product of two vectors over the
// shorter of the two lengths.
func Dot(a, b Vector) int32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum int32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}

	return sum
}

// ReadVectors parses one vector per line of whitespace separated integers.
// Blank lines produce empty vectors so that row numbers match line numbers.
func ReadVectors(r io.Reader) ([]Vector, error) {
	var rows []Vector

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++

		fields := strings.Fields(scanner.Text())
		row := make(Vector, len(fields))

		for i, f := range fields {
			x, err := strconv.ParseInt(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}

			row[i] = int32(x)
		}

		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return rows, nil
}

// ReadVectorFile reads a vector file from disk.
func ReadVectorFile(path string) ([]Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()

	rows, err := ReadVectors(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return rows, nil
}

// WriteVectors writes one vector per line.
func WriteVectors(w io.Writer, rows []Vector) error {
	bw := bufio.NewWriter(w)

	for _, row := range rows {
		for i, x := range row {
			if i > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}

			if _, err := bw.WriteString(strconv.FormatInt(int64(x), 10)); err != nil {
				return err
			}
		}

		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteVectorFile writes a vector file to disk, replacing any existing file.
func WriteVectorFile(path string, rows []Vector) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector file: %w", err)
	}

	if err := WriteVectors(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}
