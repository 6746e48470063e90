package command

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"splice/internal/services"
	"splice/internal/timeline"
)

// Rewriter edits the slot a command targets. It reports false and leaves doc
// untouched when no slot covers the command's time.
type Rewriter interface {
	Rewrite(ctx context.Context, doc *timeline.Document, cmd Command) (bool, error)
}

// Translator renders text in another language. *llm.Client satisfies it.
type Translator interface {
	Translate(ctx context.Context, text string, target language.Tag) (string, error)
}

type textReplacer struct{}

func (textReplacer) Rewrite(_ context.Context, doc *timeline.Document, cmd Command) (bool, error) {
	slot, ok := doc.TextSlotAt(cmd.Time)
	if !ok {
		return false, nil
	}
	slot.SetText(cmd.Value)
	return true, nil
}

// mediaReplacer swaps the clip on a track for an asset. Video and image
// assets live on video tracks, music on audio tracks.
type mediaReplacer struct {
	kind   MediaType
	track  timeline.TrackKind
	assets Assets
}

func (r mediaReplacer) Rewrite(_ context.Context, doc *timeline.Document, cmd Command) (bool, error) {
	source, err := r.assets.Source(r.kind, cmd.Value)
	if err != nil {
		return false, err
	}
	clip, ok := doc.ClipAt(r.track, cmd.Time)
	if !ok {
		return false, nil
	}
	clip.SetSource(source)
	return true, nil
}

type textTranslator struct {
	translator Translator
}

func (r textTranslator) Rewrite(ctx context.Context, doc *timeline.Document, cmd Command) (bool, error) {
	if r.translator == nil {
		return false, services.Wrap(services.ErrConfiguration, "command", "translate", "translation is not configured", nil)
	}
	target, err := ParseLanguage(cmd.Value)
	if err != nil {
		return false, err
	}
	slot, ok := doc.TextSlotAt(cmd.Time)
	if !ok {
		return false, nil
	}
	current := strings.TrimSpace(slot.Text())
	if current == "" {
		return true, nil
	}
	translated, err := r.translator.Translate(ctx, current, target)
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, "command", "translate", "translation failed", err)
	}
	slot.SetText(translated)
	return true, nil
}
