package game

// Wire coordinates are fixed-point: two decimal places, sent as ints.
const compressPrecision = 100

// Compress rounds a world coordinate to its wire representation.
func Compress(value float64) int {
	if value < 0 {
		return int(value*compressPrecision - 0.5)
	}
	return int(value*compressPrecision + 0.5)
}

// Decompress restores a wire coordinate.
func Decompress(value int) float64 {
	return float64(value) / compressPrecision
}
