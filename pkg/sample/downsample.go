package sample

// Downsample reduces samples to at most maxPoints by simple decimation, for
// display. dst is reused when it has enough capacity; the result is returned
// either way. A non-positive maxPoints copies everything.
func Downsample(dst []Sample, samples []Sample, maxPoints int) []Sample {
	n := len(samples)
	if maxPoints <= 0 || n <= maxPoints {
		maxPoints = n
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, maxPoints)
	}

	if maxPoints == n {
		return append(dst, samples...)
	}

	step := float64(n) / float64(maxPoints)
	for i := range maxPoints {
		dst = append(dst, samples[int(float64(i)*step)])
	}
	return dst
}
