package timeline

import (
	"strings"

	"github.com/beevik/etree"
)

// TrackKind selects the video or audio half of the sequence.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// TextSlot is the string parameter of a text generator.
type TextSlot struct {
	Start, End int64
	value      *etree.Element
}

// Text returns the caption currently stored in the slot.
func (s *TextSlot) Text() string { return s.value.Text() }

// SetText replaces the caption.
func (s *TextSlot) SetText(text string) { s.value.SetText(text) }

// TextSlotAt finds the topmost text generator covering seconds.
func (d *Document) TextSlotAt(seconds float64) (*TextSlot, bool) {
	frame := d.FrameAt(seconds)
	for _, track := range d.tracks(TrackVideo) {
		for _, item := range track.SelectElements("generatoritem") {
			start, end, ok := itemBounds(item)
			if !ok || frame < start || frame >= end {
				continue
			}
			if value := textParameter(item); value != nil {
				return &TextSlot{Start: start, End: end, value: value}, true
			}
		}
	}
	return nil, false
}

func textParameter(item *etree.Element) *etree.Element {
	for _, effect := range item.SelectElements("effect") {
		for _, param := range effect.SelectElements("parameter") {
			if strings.TrimSpace(textOf(Child(param, "parameterid"))) != "str" {
				continue
			}
			value := Child(param, "value")
			if value == nil {
				value = param.CreateElement("value")
			}
			return value
		}
	}
	return nil
}

// Clip is a clip item referencing a media file.
type Clip struct {
	Start, End int64
	item       *etree.Element
}

// Source describes the media a clip should point at.
type Source struct {
	ID      string
	Name    string
	PathURL string
}

// FileName returns the clip's current file name.
func (c *Clip) FileName() string {
	return textOf(Child(Child(c.item, "file"), "name"))
}

// SetSource repoints the clip at new media. The file element is rebuilt so
// the clip no longer shares a file reference with other clips.
func (c *Clip) SetSource(src Source) {
	if old := Child(c.item, "file"); old != nil {
		c.item.RemoveChild(old)
	}
	file := c.item.CreateElement("file")
	file.CreateAttr("id", src.ID)
	file.CreateElement("name").SetText(src.Name)
	file.CreateElement("pathurl").SetText(src.PathURL)
	if name := Child(c.item, "name"); name != nil {
		name.SetText(src.Name)
	}
}

// ClipAt finds the topmost clip of kind covering seconds.
func (d *Document) ClipAt(kind TrackKind, seconds float64) (*Clip, bool) {
	frame := d.FrameAt(seconds)
	for _, track := range d.tracks(kind) {
		for _, item := range track.SelectElements("clipitem") {
			start, end, ok := itemBounds(item)
			if !ok || frame < start || frame >= end {
				continue
			}
			if Child(item, "file") == nil {
				continue
			}
			return &Clip{Start: start, End: end, item: item}, true
		}
	}
	return nil, false
}
