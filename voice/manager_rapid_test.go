package voice

import (
	"testing"

	"pgregory.net/rapid"
)

// TestStackNeverExceedsCapacity is a property test: whatever sequence of
// note-on/note-off/note-free calls a caller makes, FlushEvents must never
// let the active voice count exceed the manager's capacity, and the
// active lanes VoiceMask reports must always form a prefix of each
// cluster's slots (the "packed stack" invariant the EventMove replay
// exists to maintain).
func TestStackNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numClusters := rapid.IntRange(1, 3).Draw(rt, "numClusters")
		maxPolyphony := rapid.IntRange(0, numClusters*4).Draw(rt, "maxPolyphony")
		m := NewStackVoiceManager(numClusters, maxPolyphony)

		capacity := numClusters * 4 // vec.StereoVoices
		if maxPolyphony > 0 && maxPolyphony < capacity {
			capacity = maxPolyphony
		}

		live := map[uint8]bool{}
		nextNote := uint8(0)

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0: // note on a fresh note
				note := nextNote
				nextNote++
				m.NoteOn(note, 1.0)
				live[note] = true
			case 1: // note off + free an arbitrary live note
				for note := range live {
					m.NoteOff(note, 0)
					m.NoteFree(note)
					delete(live, note)
					break
				}
			case 2:
				m.FlushEvents()
			}

			m.FlushEvents()
			if m.ActiveCount() > capacity {
				rt.Fatalf("active count %d exceeds capacity %d", m.ActiveCount(), capacity)
			}

			for c := 0; c < numClusters; c++ {
				mask := m.VoiceMask(c)
				seenInactive := false
				for lane := 0; lane < len(mask); lane += 2 {
					active := mask[lane]
					if !active {
						seenInactive = true
					} else if seenInactive {
						rt.Fatalf("cluster %d has an active lane after an inactive one: %v", c, mask)
					}
				}
			}
		}
	})
}
