package timeline

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const defaultTimebase = 25

// ErrMalformed marks documents that are not usable xmeml timelines.
var ErrMalformed = errors.New("malformed timeline document")

// Document is a parsed timeline. It is not safe for concurrent mutation.
type Document struct {
	tree *etree.Document
}

// Parse decodes an xmeml document. The root element must be <xmeml> with a
// <sequence> child.
func Parse(data []byte) (*Document, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	doc := &Document{tree: tree}
	if doc.sequence() == nil {
		return nil, fmt.Errorf("%w: missing xmeml/sequence", ErrMalformed)
	}
	return doc, nil
}

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	return d.tree.WriteToBytes()
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	return &Document{tree: d.tree.Copy()}
}

// Equal reports whether both documents serialize to the same bytes.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	a, errA := d.Bytes()
	b, errB := other.Bytes()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// Child returns the first child element of parent named name, or nil.
func Child(parent *etree.Element, name string) *etree.Element {
	if parent == nil {
		return nil
	}
	return parent.SelectElement(name)
}

func (d *Document) sequence() *etree.Element {
	root := d.tree.Root()
	if root == nil || root.Tag != "xmeml" {
		return nil
	}
	return Child(root, "sequence")
}

// Name returns the sequence name.
func (d *Document) Name() string {
	if el := Child(d.sequence(), "name"); el != nil {
		return el.Text()
	}
	return ""
}

// SetName overwrites the sequence name, creating the element when absent.
func (d *Document) SetName(name string) {
	seq := d.sequence()
	el := Child(seq, "name")
	if el == nil {
		el = etree.NewElement("name")
		seq.InsertChildAt(0, el)
	}
	el.SetText(name)
}

// FramesPerSecond is the effective sequence rate; NTSC timebases run at
// timebase*1000/1001.
func (d *Document) FramesPerSecond() float64 {
	rate := Child(d.sequence(), "rate")
	timebase := defaultTimebase
	if tb := Child(rate, "timebase"); tb != nil {
		if v, err := strconv.Atoi(strings.TrimSpace(tb.Text())); err == nil && v > 0 {
			timebase = v
		}
	}
	fps := float64(timebase)
	if ntsc := Child(rate, "ntsc"); ntsc != nil && strings.EqualFold(strings.TrimSpace(ntsc.Text()), "true") {
		fps = fps * 1000 / 1001
	}
	return fps
}

// FrameAt converts seconds on the sequence timeline to a frame index.
func (d *Document) FrameAt(seconds float64) int64 {
	if seconds <= 0 {
		return 0
	}
	return int64(math.Floor(seconds*d.FramesPerSecond() + 1e-6))
}

// tracks returns the tracks of a media kind, topmost first. xmeml lists
// video tracks bottom-up, so the last track composites over the others.
func (d *Document) tracks(kind TrackKind) []*etree.Element {
	media := Child(d.sequence(), "media")
	group := Child(media, string(kind))
	if group == nil {
		return nil
	}
	tracks := group.SelectElements("track")
	for i, j := 0, len(tracks)-1; i < j; i, j = i+1, j-1 {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}
	return tracks
}

func itemBounds(item *etree.Element) (int64, int64, bool) {
	start, errStart := strconv.ParseInt(strings.TrimSpace(textOf(Child(item, "start"))), 10, 64)
	end, errEnd := strconv.ParseInt(strings.TrimSpace(textOf(Child(item, "end"))), 10, 64)
	// -1 marks an edge that belongs to a transition.
	if errStart != nil || errEnd != nil || start < 0 || end <= start {
		return 0, 0, false
	}
	return start, end, true
}

func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.Text()
}

func (d *Document) String() string {
	data, err := d.Bytes()
	if err != nil {
		return ""
	}
	return string(data)
}
