package preprocess

import "image"

// otsuThreshold finds the luminance threshold maximizing inter-class
// variance of the image histogram.
func otsuThreshold(img *image.NRGBA) int {
	var histogram [256]int
	total := 0

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			l := luminance(img.NRGBAAt(x, y))
			histogram[l]++
			total++
		}
	}
	if total == 0 {
		return 128
	}

	sum := 0.0
	for i, count := range histogram {
		sum += float64(i) * float64(count)
	}

	sumBackground := 0.0
	weightBackground := 0
	bestThreshold := 128
	bestVariance := 0.0

	for t := 0; t < 256; t++ {
		weightBackground += histogram[t]
		if weightBackground == 0 {
			continue
		}
		weightForeground := total - weightBackground
		if weightForeground == 0 {
			break
		}

		sumBackground += float64(t) * float64(histogram[t])
		meanBackground := sumBackground / float64(weightBackground)
		meanForeground := (sum - sumBackground) / float64(weightForeground)

		diff := meanBackground - meanForeground
		variance := float64(weightBackground) * float64(weightForeground) * diff * diff
		if variance > bestVariance {
			bestVariance = variance
			bestThreshold = t
		}
	}

	return bestThreshold
}
