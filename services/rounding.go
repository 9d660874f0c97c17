package services

import "math"

// Round rounds v to the given number of decimal places. All monetary and
// consumption figures round through here, and only at output boundaries --
// intermediate formula values stay unrounded so drift cannot compound.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Round2 is the 2-decimal convention used for every billed figure.
func Round2(v float64) float64 {
	return Round(v, 2)
}
