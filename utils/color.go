package utils

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidColor reports whether color is a 6-digit hex color bright enough
// to read against the dark board (YIQ luma check, as the web client does).
func ValidColor(color string) bool {
	if !colorPattern.MatchString(color) {
		return false
	}
	r, _ := strconv.ParseInt(color[1:3], 16, 32)
	g, _ := strconv.ParseInt(color[3:5], 16, 32)
	b, _ := strconv.ParseInt(color[5:7], 16, 32)
	yiq := (float64(r)*299 + float64(g)*587 + float64(b)*114) / 1000
	return yiq >= 40
}

// RandomColor returns a random color that passes ValidColor.
func RandomColor() string {
	for {
		color := fmt.Sprintf("#%02x%02x%02x", 1+rand.Intn(255), 1+rand.Intn(255), 1+rand.Intn(255))
		if ValidColor(color) {
			return color
		}
	}
}
