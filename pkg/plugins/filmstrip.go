package plugins

import (
	"encoding/base64"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/odvcencio/synthetics/pkg/journey"
)

// DefaultMaxFilmstrips bounds the filmstrip attached to a journey.
const DefaultMaxFilmstrips = 50

const (
	screenshotEvent = "Screenshot"
	filmstripName   = "screenshot"
)

// DecodeFilmstrips extracts screenshot frames from raw trace events and
// returns them sorted by timestamp. Events that are not screenshots, and
// screenshots whose snapshot is not valid base64, are skipped; the number
// of corrupt frames is returned alongside.
func DecodeFilmstrips(events [][]byte) (frames []journey.FilmStrip, corrupt int) {
	frames = make([]journey.FilmStrip, 0)
	for _, raw := range events {
		if !gjson.ValidBytes(raw) {
			corrupt++
			continue
		}
		fields := gjson.GetManyBytes(raw, "name", "ts", "args.snapshot")
		if fields[0].String() != screenshotEvent || !fields[2].Exists() {
			continue
		}
		snapshot := fields[2].String()
		if _, err := base64.StdEncoding.DecodeString(snapshot); err != nil {
			corrupt++
			continue
		}
		frames = append(frames, journey.FilmStrip{
			Snapshot: snapshot,
			Name:     filmstripName,
			Ts:       fields[1].Int(),
		})
	}
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].Ts < frames[j].Ts })
	return frames, corrupt
}

// FilterFilmstrips reduces time-ordered frames to at most max evenly spaced
// frames. The first and last frame are always kept; intermediate frames are
// kept only when at least (last-first)/(max-1) has elapsed since the
// previously kept frame. A max below 2 is treated as 2.
func FilterFilmstrips(frames []journey.FilmStrip, max int) []journey.FilmStrip {
	if max < 2 {
		max = 2
	}
	if len(frames) <= max {
		out := make([]journey.FilmStrip, len(frames))
		copy(out, frames)
		return out
	}

	first, last := frames[0], frames[len(frames)-1]
	minDelta := float64(last.Ts-first.Ts) / float64(max-1)

	out := make([]journey.FilmStrip, 0, max)
	out = append(out, first)
	for _, f := range frames[1 : len(frames)-1] {
		if len(out) == max-1 {
			break
		}
		if float64(f.Ts-out[len(out)-1].Ts) >= minDelta {
			out = append(out, f)
		}
	}
	return append(out, last)
}
