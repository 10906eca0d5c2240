package model

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func softmax(scores []float32) []float32 {
	if len(scores) == 0 {
		return nil
	}
	maxVal := scores[0]
	for _, v := range scores[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	out := make([]float32, len(scores))
	var sum float64
	for i, v := range scores {
		e := math.Exp(float64(v - maxVal))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

func argmax(values []float32) int {
	maxIdx := 0
	for i, v := range values {
		if v > values[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

// topK pairs scores with labels and returns the k best, highest first.
// Ties keep label order.
func topK(scores []float32, labels []string, k int) []Score {
	n := len(scores)
	if len(labels) < n {
		n = len(labels)
	}

	ranked := make([]Score, n)
	for i := 0; i < n; i++ {
		ranked[i] = Score{Label: labels[i], Confidence: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// loadLabels reads one class label per line. A leading WordNet id such as
// "n01440764 tench" is dropped so only the readable name remains.
func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, stripWordNetID(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}

func stripWordNetID(line string) string {
	id, rest, found := strings.Cut(line, " ")
	if !found || len(id) != 9 || id[0] != 'n' {
		return line
	}
	for _, c := range id[1:] {
		if c < '0' || c > '9' {
			return line
		}
	}
	return strings.TrimSpace(rest)
}

func resolveLabels(metadata Metadata) ([]string, error) {
	if len(metadata.Classes) > 0 {
		return metadata.Classes, nil
	}
	if metadata.LabelsPath == "" {
		return nil, fmt.Errorf("metadata has neither classes nor labels_path")
	}
	return loadLabels(metadata.LabelsPath)
}
