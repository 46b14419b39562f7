package pitch

import (
	"math"
	"strconv"
)

// referenceA4 is the concert pitch used for note naming.
const referenceA4 = 440.0

// c0 is the frequency of C0 derived from A4 (A4 × 2^(−4.75) ≈ 16.35 Hz).
// Frequencies below this floor have no meaningful note name.
var c0 = referenceA4 * math.Pow(2, -4.75)

// noteNames is the 12-tone chromatic scale starting at C.
var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Sentinel note names for frequencies that cannot be named.
const (
	NoteSilence = "Silence"
	NoteBelowC0 = "Below C0"
)

// semitonesFromC0 returns the (fractional) number of semitones between freq
// and C0. Only meaningful for freq > 0.
func semitonesFromC0(freq float64) float64 {
	return 12 * math.Log2(freq/c0)
}

// NoteName converts a frequency in Hz to its musical note name, e.g.
// NoteName(440) == "A4". Unvoiced frames (freq ≤ 0) map to [NoteSilence] and
// audible frequencies below C0 map to [NoteBelowC0]; neither is an error.
func NoteName(freq float64) string {
	if freq <= 0 {
		return NoteSilence
	}
	if freq < c0 {
		return NoteBelowC0
	}

	semitones := int(math.Round(semitonesFromC0(freq)))
	octave := int(math.Floor(float64(semitones) / 12))
	// floorMod rather than %: Go's remainder truncates toward zero and would
	// produce a negative index for semitone counts just below an octave
	// boundary after rounding.
	idx := floorMod(semitones, 12)
	return noteNames[idx] + strconv.Itoa(octave)
}

// SemitoneDiff returns the pitch difference between two voiced frequencies in
// semitones (positive when a is higher than b), and the same difference in
// cents. Returns (0, 0) when either frequency is unvoiced.
func SemitoneDiff(a, b float64) (semitones, cents float64) {
	if a <= 0 || b <= 0 {
		return 0, 0
	}
	semitones = semitonesFromC0(a) - semitonesFromC0(b)
	return semitones, semitones * 100
}

// floorMod is the mathematical modulo: the result always has the sign of the
// divisor. floorMod(-1, 12) == 11.
func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
