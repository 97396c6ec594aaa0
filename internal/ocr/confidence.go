package ocr

import (
	"sort"
	"strconv"
	"strings"
)

type lineKey struct{ page, block, par, line int }

type lineAcc struct {
	words   []string
	top     int
	confSum float64
	confN   int
	order   int
}

// ParseTSV groups tesseract word rows into lines keyed by page, block,
// paragraph and line number. A line's Top is its highest word and its
// confidence the mean word confidence scaled to 0..1. Rows with conf -1 are
// layout rows and carry no text.
func ParseTSV(out []byte) []Detection {
	acc := map[lineKey]*lineAcc{}
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue
		} // skip header
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		conf, err := strconv.ParseFloat(cols[10], 64)
		if text == "" || err != nil || conf < 0 {
			continue
		}
		k := lineKey{atoi(cols[1]), atoi(cols[2]), atoi(cols[3]), atoi(cols[4])}
		top := atoi(cols[7])
		a, ok := acc[k]
		if !ok {
			a = &lineAcc{top: top, order: len(acc)}
			acc[k] = a
		}
		a.words = append(a.words, text)
		if top < a.top {
			a.top = top
		}
		a.confSum += conf
		a.confN++
	}

	lines := make([]*lineAcc, 0, len(acc))
	for _, a := range acc {
		lines = append(lines, a)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].order < lines[j].order })

	dets := make([]Detection, 0, len(lines))
	for _, a := range lines {
		conf := a.confSum / float64(a.confN) / 100
		dets = append(dets, Detection{
			Text:       strings.Join(a.words, " "),
			Top:        float64(a.top),
			Confidence: clamp01(conf),
		})
	}
	return dets
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
