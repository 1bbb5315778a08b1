package voice

import "github.com/sigflow/polygraph/vec"

// VoiceEventKind tags what a VoiceEvent asks the oscillator (or any
// other per-voice Processor) to do.
type VoiceEventKind int

const (
	// EventActivate assigns Note to (Cluster, Lane), which a Processor
	// should treat as ActivateVoice followed by Reset.
	EventActivate VoiceEventKind = iota
	// EventDeactivate tells the Processor to begin releasing (Cluster,
	// Lane)'s voice; the slot is still occupied until a matching NoteFree
	// actually frees it.
	EventDeactivate
	// EventMove asks the Processor to call MoveState((FromCluster,
	// FromLane), (Cluster, Lane)) to keep active voices packed towards
	// the front of the global voice stack after a freed voice creates a
	// gap.
	EventMove
)

// VoiceEvent is one instruction a StackVoiceManager emits from
// FlushEvents, consumed once per block by whatever owns the oscillator
// clusters.
type VoiceEvent struct {
	Kind VoiceEventKind

	Cluster, Lane         int
	FromCluster, FromLane int // valid when Kind == EventMove

	Note     uint8
	Velocity float32
}

type pendingNote struct {
	note     uint8
	velocity float32
}

// StackVoiceManager packs active voices into a single flat stack
// spanning every cluster (global slot = cluster*vec.StereoVoices +
// lane): a voice is active exactly when its slot index is below the
// stack's current length. NoteOn/NoteOff/NoteFree only queue pending
// changes; FlushEvents applies them in note-off, then free, then
// note-on order and returns the resulting VoiceEvents, mirroring
// StackVoiceManager::flush_events from the original oscillator's voice
// allocator: a note-off marks a voice for release without freeing its
// slot, and a later free either hands the freed slot straight to a
// pending note-on or plugs the gap by moving the stack's top voice
// down into it.
type StackVoiceManager struct {
	capacity int
	voices   []uint8

	addPending        []pendingNote
	freePending       []uint8
	deactivatePending []pendingNote
}

// NewStackVoiceManager returns a manager over numClusters clusters of
// vec.StereoVoices lanes each. maxPolyphony further caps how many
// voices may be active at once, in addition to the cluster capacity.
func NewStackVoiceManager(numClusters, maxPolyphony int) *StackVoiceManager {
	capacity := numClusters * vec.StereoVoices
	if maxPolyphony > 0 && maxPolyphony < capacity {
		capacity = maxPolyphony
	}
	return &StackVoiceManager{capacity: capacity}
}

// SetMaxPolyphony caps how many voices may be active simultaneously;
// voices already active beyond the new cap are left running until
// individually freed.
func (m *StackVoiceManager) SetMaxPolyphony(numClusters, maxPolyphony int) {
	capacity := numClusters * vec.StereoVoices
	if maxPolyphony > 0 && maxPolyphony < capacity {
		capacity = maxPolyphony
	}
	m.capacity = capacity
}

func slotClusterLane(slot int) (cluster, lane int) {
	return slot / vec.StereoVoices, slot % vec.StereoVoices
}

func indexOfNote(voices []uint8, note uint8) (int, bool) {
	for i, n := range voices {
		if n == note {
			return i, true
		}
	}
	return -1, false
}

// NoteOn queues note for activation on the next FlushEvents call.
func (m *StackVoiceManager) NoteOn(note uint8, velocity float32) {
	m.addPending = append(m.addPending, pendingNote{note, velocity})
}

// NoteOff queues note to begin release (EventDeactivate) without
// freeing its slot; call NoteFree once the release has finished
// producing audio to actually reclaim the voice.
func (m *StackVoiceManager) NoteOff(note uint8, velocity float32) {
	m.deactivatePending = append(m.deactivatePending, pendingNote{note, velocity})
}

// NoteFree queues note's slot to be reclaimed on the next FlushEvents
// call.
func (m *StackVoiceManager) NoteFree(note uint8) {
	m.freePending = append(m.freePending, note)
}

// FlushEvents applies every pending NoteOff/NoteFree/NoteOn call, in
// that priority order (deactivate, then free, then activate), and
// returns the VoiceEvents a cluster owner should replay in order. Call
// this once per processed block.
func (m *StackVoiceManager) FlushEvents() []VoiceEvent {
	var events []VoiceEvent

	for _, p := range m.deactivatePending {
		if slot, ok := indexOfNote(m.voices, p.note); ok {
			c, l := slotClusterLane(slot)
			events = append(events, VoiceEvent{Kind: EventDeactivate, Cluster: c, Lane: l, Note: p.note, Velocity: p.velocity})
		}
	}
	m.deactivatePending = m.deactivatePending[:0]

	for _, note := range m.freePending {
		slot, ok := indexOfNote(m.voices, note)
		if !ok {
			continue
		}
		if n := len(m.addPending); n > 0 {
			added := m.addPending[n-1]
			m.addPending = m.addPending[:n-1]
			m.voices[slot] = added.note
			c, l := slotClusterLane(slot)
			events = append(events, VoiceEvent{Kind: EventActivate, Cluster: c, Lane: l, Note: added.note, Velocity: added.velocity})
			continue
		}
		last := len(m.voices) - 1
		if last < 0 {
			continue
		}
		if last == slot {
			m.voices = m.voices[:last]
			continue
		}
		replacement := m.voices[last]
		m.voices = m.voices[:last]
		m.voices[slot] = replacement
		fc, fl := slotClusterLane(last)
		tc, tl := slotClusterLane(slot)
		events = append(events, VoiceEvent{Kind: EventMove, FromCluster: fc, FromLane: fl, Cluster: tc, Lane: tl})
	}
	m.freePending = m.freePending[:0]

	for _, p := range m.addPending {
		if len(m.voices) >= m.capacity {
			continue
		}
		slot := len(m.voices)
		m.voices = append(m.voices, p.note)
		c, l := slotClusterLane(slot)
		events = append(events, VoiceEvent{Kind: EventActivate, Cluster: c, Lane: l, Note: p.note, Velocity: p.velocity})
	}
	m.addPending = m.addPending[:0]

	return events
}

// VoiceMask returns the active-lane mask for one cluster, ready to pass
// straight to WTOscVoiceCluster.SetParams or ResetPhases: a lane is
// active exactly when its global slot sits below the voice stack's
// current length.
func (m *StackVoiceManager) VoiceMask(clusterIdx int) vec.Mask {
	var mask vec.Mask
	base := clusterIdx * vec.StereoVoices
	for i := range mask {
		mask[i] = base+i/2 < len(m.voices)
	}
	return mask
}

// ActiveCount returns how many voices are currently active across every
// cluster.
func (m *StackVoiceManager) ActiveCount() int { return len(m.voices) }
