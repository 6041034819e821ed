package timeline

import (
	"fmt"

	"splicer/internal/services"
)

// InsertMode controls how InsertAt treats a position inside a clip.
type InsertMode int

const (
	// InsertAligned requires the position to fall in a blank or on an entry
	// boundary.
	InsertAligned InsertMode = iota
	// InsertSplit splits a clip covering the position and inserts between
	// the two halves.
	InsertSplit
)

type entry struct {
	clip  *Clip
	blank int
}

func (e entry) length() int {
	if e.clip == nil {
		return e.blank
	}
	return e.clip.Length()
}

// EntryInfo describes one playlist slot.
type EntryInfo struct {
	Index  int
	Start  int
	Length int
	Clip   *Clip
}

// IsBlank reports whether the slot is empty space.
func (i EntryInfo) IsBlank() bool { return i.Clip == nil }

// End returns the first frame after the slot.
func (i EntryInfo) End() int { return i.Start + i.Length }

// Playlist is the ordered, gapless sequence of clips and blanks of one track.
type Playlist struct {
	entries []entry
	Filters FilterStack
}

// Count returns the number of entries.
func (p *Playlist) Count() int {
	return len(p.entries)
}

// Playtime returns the total length in frames.
func (p *Playlist) Playtime() int {
	total := 0
	for _, e := range p.entries {
		total += e.length()
	}
	return total
}

// ClipStart returns the absolute start frame of entry i. Indices past the
// end return the playtime.
func (p *Playlist) ClipStart(i int) int {
	start := 0
	for idx, e := range p.entries {
		if idx >= i {
			break
		}
		start += e.length()
	}
	return start
}

// ClipIndexAt returns the index of the entry covering pos, or Count() when
// pos lies past the end.
func (p *Playlist) ClipIndexAt(pos int) int {
	if pos < 0 {
		return 0
	}
	start := 0
	for i, e := range p.entries {
		start += e.length()
		if pos < start {
			return i
		}
	}
	return len(p.entries)
}

// IsBlank reports whether entry i is a blank. Indices outside the playlist
// count as blank.
func (p *Playlist) IsBlank(i int) bool {
	if i < 0 || i >= len(p.entries) {
		return true
	}
	return p.entries[i].clip == nil
}

// IsBlankAt reports whether pos lies in empty space.
func (p *Playlist) IsBlankAt(pos int) bool {
	return p.IsBlank(p.ClipIndexAt(pos))
}

// Info describes entry i.
func (p *Playlist) Info(i int) (EntryInfo, bool) {
	if i < 0 || i >= len(p.entries) {
		return EntryInfo{Index: i, Start: p.Playtime()}, false
	}
	e := p.entries[i]
	return EntryInfo{Index: i, Start: p.ClipStart(i), Length: e.length(), Clip: e.clip}, true
}

// ClipAt returns the clip in slot i, or nil for blanks and invalid indices.
func (p *Playlist) ClipAt(i int) *Clip {
	if i < 0 || i >= len(p.entries) {
		return nil
	}
	return p.entries[i].clip
}

// Entries describes every slot in order.
func (p *Playlist) Entries() []EntryInfo {
	out := make([]EntryInfo, 0, len(p.entries))
	start := 0
	for i, e := range p.entries {
		out = append(out, EntryInfo{Index: i, Start: start, Length: e.length(), Clip: e.clip})
		start += e.length()
	}
	return out
}

// Clips returns the clips in order, skipping blanks.
func (p *Playlist) Clips() []*Clip {
	var out []*Clip
	for _, e := range p.entries {
		if e.clip != nil {
			out = append(out, e.clip)
		}
	}
	return out
}

// Append adds c after the last entry and returns its index.
func (p *Playlist) Append(c *Clip) int {
	p.entries = append(p.entries, entry{clip: c})
	return len(p.entries) - 1
}

// Blank appends a blank of length frames.
func (p *Playlist) Blank(length int) {
	if length > 0 {
		p.entries = append(p.entries, entry{blank: length})
	}
}

// Insert places c before entry i, appending when i is past the end.
func (p *Playlist) Insert(c *Clip, i int) int {
	return p.insertEntry(entry{clip: c}, i)
}

func (p *Playlist) insertEntry(e entry, i int) int {
	if i < 0 {
		i = 0
	}
	if i >= len(p.entries) {
		p.entries = append(p.entries, e)
		return len(p.entries) - 1
	}
	p.entries = append(p.entries, entry{})
	copy(p.entries[i+1:], p.entries[i:])
	p.entries[i] = e
	return i
}

// Remove deletes entry i without leaving space behind.
func (p *Playlist) Remove(i int) error {
	if i < 0 || i >= len(p.entries) {
		return indexError("remove", i)
	}
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	return nil
}

// Clear drops every entry.
func (p *Playlist) Clear() {
	p.entries = nil
}

// InsertBlank inserts length frames of empty space before entry i and merges
// it with neighbouring blanks.
func (p *Playlist) InsertBlank(i, length int) error {
	if i < 0 || length < 0 {
		return services.Wrap(services.ErrValidation, "playlist", "insert_blank", fmt.Sprintf("index %d length %d", i, length), nil)
	}
	if length == 0 {
		return nil
	}
	p.insertEntry(entry{blank: length}, i)
	p.ConsolidateBlanks(0)
	return nil
}

// ReplaceWithBlank swaps the clip in slot i for a blank of the same length
// and hands the clip to the caller.
func (p *Playlist) ReplaceWithBlank(i int) (*Clip, error) {
	if i < 0 || i >= len(p.entries) {
		return nil, indexError("replace_with_blank", i)
	}
	e := p.entries[i]
	if e.clip == nil {
		return nil, blankError("replace_with_blank", i)
	}
	p.entries[i] = entry{blank: e.clip.Length()}
	return e.clip, nil
}

// RemoveRegion deletes length frames starting at start, shifting later
// entries left. Clips partially covered are trimmed.
func (p *Playlist) RemoveRegion(start, length int) error {
	if start < 0 {
		return services.Wrap(services.ErrValidation, "playlist", "remove_region", fmt.Sprintf("negative start %d", start), nil)
	}
	idx := p.ClipIndexAt(start)
	if length <= 0 || idx >= len(p.entries) {
		return nil
	}
	if total := p.Playtime(); start+length > total {
		length = total - start
	}
	if clipStart := p.ClipStart(idx); clipStart < start {
		if err := p.Split(idx, start-clipStart); err != nil {
			return err
		}
		idx++
	}
	for length > 0 && idx < len(p.entries) {
		n := p.entries[idx].length()
		if n > length {
			if err := p.Split(idx, length); err != nil {
				return err
			}
			n = length
		}
		length -= n
		p.entries = append(p.entries[:idx], p.entries[idx+1:]...)
	}
	p.ConsolidateBlanks(0)
	return nil
}

// ResizeClip changes the source range of the clip in slot i.
func (p *Playlist) ResizeClip(i, in, out int) error {
	if i < 0 || i >= len(p.entries) {
		return indexError("resize_clip", i)
	}
	c := p.entries[i].clip
	if c == nil {
		return blankError("resize_clip", i)
	}
	if in < 0 || out < in {
		return services.Wrap(services.ErrValidation, "playlist", "resize_clip", fmt.Sprintf("range [%d, %d]", in, out), nil)
	}
	if out >= c.Producer.Length {
		return services.Wrap(services.ErrCapacity, "playlist", "resize_clip",
			fmt.Sprintf("out %d exceeds producer length %d", out, c.Producer.Length), nil)
	}
	c.In, c.Out = in, out
	return nil
}

// ConsolidateBlanks merges runs of adjacent blanks from index from onwards
// and drops zero-length blanks. Calling it twice has no further effect.
func (p *Playlist) ConsolidateBlanks(from int) {
	if from < 0 {
		from = 0
	}
	if from >= len(p.entries) {
		return
	}
	if from > 0 {
		from--
	}
	out := make([]entry, 0, len(p.entries))
	out = append(out, p.entries[:from]...)
	for _, e := range p.entries[from:] {
		if e.clip == nil {
			if e.blank <= 0 {
				continue
			}
			if n := len(out); n > 0 && out[n-1].clip == nil {
				out[n-1].blank += e.blank
				continue
			}
		}
		out = append(out, e)
	}
	p.entries = out
}

// Split divides entry i into two, the first holding offset frames. The
// second half of a clip is a fresh cut of the same producer with no filters.
func (p *Playlist) Split(i, offset int) error {
	if i < 0 || i >= len(p.entries) {
		return indexError("split", i)
	}
	e := p.entries[i]
	n := e.length()
	if offset <= 0 || offset >= n {
		return services.Wrap(services.ErrValidation, "playlist", "split", fmt.Sprintf("offset %d outside entry of %d frames", offset, n), nil)
	}
	if e.clip == nil {
		p.entries[i].blank = offset
		p.insertEntry(entry{blank: n - offset}, i+1)
		return nil
	}
	second := &Clip{Producer: e.clip.Producer, In: e.clip.In + offset, Out: e.clip.Out}
	e.clip.Out = e.clip.In + offset - 1
	p.insertEntry(entry{clip: second}, i+1)
	return nil
}

// SplitAt splits the entry covering pos when pos is interior to it and
// returns the index of the entry starting at pos.
func (p *Playlist) SplitAt(pos int) (int, error) {
	idx := p.ClipIndexAt(pos)
	if idx >= len(p.entries) {
		return idx, nil
	}
	start := p.ClipStart(idx)
	if start == pos {
		return idx, nil
	}
	if err := p.Split(idx, pos-start); err != nil {
		return idx, err
	}
	return idx + 1, nil
}

// InsertAt places c at absolute position pos and returns its index.
//
// Past the end the gap is padded with a blank. Inside a blank the blank is
// split and the clip consumes its length from the remainder; a remainder
// shorter than the clip is consumed entirely and later entries shift right.
// Inside a clip the call fails unless mode is InsertSplit.
func (p *Playlist) InsertAt(pos int, c *Clip, mode InsertMode) (int, error) {
	if pos < 0 {
		return -1, services.Wrap(services.ErrValidation, "playlist", "insert_at", fmt.Sprintf("negative position %d", pos), nil)
	}
	if c == nil || c.Producer == nil {
		return -1, services.Wrap(services.ErrProducer, "playlist", "insert_at", "nil clip", nil)
	}
	length := c.Length()
	idx := p.ClipIndexAt(pos)
	if idx >= len(p.entries) {
		p.Blank(pos - p.Playtime())
		p.ConsolidateBlanks(len(p.entries) - 1)
		return p.Append(c), nil
	}
	start := p.ClipStart(idx)
	if p.entries[idx].clip == nil {
		if pos != start {
			if err := p.Split(idx, pos-start); err != nil {
				return -1, err
			}
			idx++
		}
		if length < p.entries[idx].blank {
			if err := p.Split(idx, length); err != nil {
				return -1, err
			}
		}
		p.entries[idx] = entry{clip: c}
		return idx, nil
	}
	if pos != start {
		if mode != InsertSplit {
			return -1, services.Wrap(services.ErrOccupancy, "playlist", "insert_at",
				fmt.Sprintf("position %d is inside clip %q", pos, p.entries[idx].clip.ID()), nil)
		}
		if err := p.Split(idx, pos-start); err != nil {
			return -1, err
		}
		idx++
	}
	return p.Insert(c, idx), nil
}

// Validate checks the structural invariants of the playlist.
func (p *Playlist) Validate() error {
	for i, e := range p.entries {
		if e.length() <= 0 {
			return fmt.Errorf("entry %d has zero length", i)
		}
		if e.clip == nil {
			if i > 0 && p.entries[i-1].clip == nil {
				return fmt.Errorf("entries %d and %d are adjacent blanks", i-1, i)
			}
			continue
		}
		if err := e.clip.validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

func indexError(op string, i int) error {
	return services.Wrap(services.ErrTopology, "playlist", op, fmt.Sprintf("entry %d does not exist", i), nil)
}

func blankError(op string, i int) error {
	return services.Wrap(services.ErrOccupancy, "playlist", op, fmt.Sprintf("entry %d is blank", i), nil)
}
