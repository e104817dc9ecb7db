// Some helpers using closures to generate values
package valgen

import "github.com/sarchlab/npusim/core"

// Gen produces the next value of a sequence.
type Gen func() int32

func MakeConstGen(constant int32) Gen {
	return func() int32 {
		return constant
	}
}

func MakeIncreasingGen(start int32) Gen {
	current := start
	return func() int32 {
		current++
		return current
	}
}

// MakeCyclicGen counts up from zero and wraps at period.
func MakeCyclicGen(period int32) Gen {
	current := int32(-1)
	return func() int32 {
		current = (current + 1) % period
		return current
	}
}

// Fill draws n values from gen.
func Fill(n int, gen Gen) core.Vector {
	v := core.Zeros(n)
	for i := range v {
		v[i] = gen()
	}

	return v
}
