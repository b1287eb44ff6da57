package blog

import (
	"strings"

	"github.com/falconandy/spacetravelling/richtext"
)

// WordsPerMinute is the reading speed used by EstimateMinutes.
const WordsPerMinute = 200

// CountWords sums the whitespace-separated words of every heading and body.
func CountWords(blocks []ContentBlock) int {
	total := 0
	for _, block := range blocks {
		total += len(strings.Fields(block.Heading))
		total += len(strings.Fields(richtext.AsText(block.Body)))
	}
	return total
}

// EstimateMinutes returns ceil(words / WordsPerMinute). No content means 0
// minutes.
func EstimateMinutes(blocks []ContentBlock) int {
	words := CountWords(blocks)
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
