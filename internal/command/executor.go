package command

import (
	"context"
	"fmt"
	"log/slog"

	"splice/internal/config"
	"splice/internal/logging"
	"splice/internal/notifications"
	"splice/internal/project"
	"splice/internal/services"
	"splice/internal/timeline"
)

// Dispatcher hands a committed version to the renderer. *render.Dispatcher
// satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, v project.Version) error
}

// Deps are the executor's collaborators. Translator and Notifier may be nil.
type Deps struct {
	Chain      *project.Chain
	Dispatcher Dispatcher
	Translator Translator
	Notifier   notifications.Service
	Logger     *slog.Logger
}

// Result is the outcome of a command. Document is the committed document on
// success and the unchanged loaded document otherwise.
type Result struct {
	Success  bool
	Document *timeline.Document
	Version  *project.Version
}

type route struct {
	action Action
	kind   MediaType
}

// Executor runs commands against project versions.
type Executor struct {
	chain      *project.Chain
	dispatcher Dispatcher
	notifier   notifications.Service
	templateID string
	routes     map[route]Rewriter
	logger     *slog.Logger
}

// NewExecutor wires the command table.
func NewExecutor(cfg *config.Config, deps Deps) *Executor {
	assets := NewAssets(cfg.Paths.AssetsDir)
	return &Executor{
		chain:      deps.Chain,
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		templateID: cfg.Projects.TemplateID,
		routes: map[route]Rewriter{
			{ActionReplace, TypeText}:   textReplacer{},
			{ActionReplace, TypeVideo}:  mediaReplacer{kind: TypeVideo, track: timeline.TrackVideo, assets: assets},
			{ActionReplace, TypeImage}:  mediaReplacer{kind: TypeImage, track: timeline.TrackVideo, assets: assets},
			{ActionReplace, TypeAudio}:  mediaReplacer{kind: TypeAudio, track: timeline.TrackAudio, assets: assets},
			{ActionTranslate, TypeText}: textTranslator{translator: deps.Translator},
		},
		logger: logging.NewComponentLogger(deps.Logger, "commands"),
	}
}

// Execute applies cmd to versionID of projectID. An empty versionID means the
// latest version, or the original when none exist. A command outside the
// table fails with services.ErrUnsupportedCommand before anything is read.
func (e *Executor) Execute(ctx context.Context, cmd Command, projectID, versionID string) (Result, error) {
	rewriter, ok := e.routes[route{cmd.Action, cmd.Type}]
	if !ok {
		return Result{}, services.Wrap(services.ErrUnsupportedCommand, "command", "execute",
			fmt.Sprintf("%q %q is not supported", cmd.Action, cmd.Type), nil)
	}
	if err := cmd.validate(); err != nil {
		return Result{}, err
	}

	ctx = services.WithProjectID(ctx, projectID)
	logger := logging.WithContext(ctx, e.logger)
	store := e.chain.Store()

	resolved, err := store.Resolve(ctx, projectID, versionID)
	if err != nil {
		return Result{}, err
	}
	loaded, err := store.Load(ctx, projectID, resolved)
	if err != nil {
		return Result{}, err
	}

	edited := loaded.Clone()
	matched, err := rewriter.Rewrite(ctx, edited, cmd)
	if err != nil {
		return Result{}, err
	}
	if !matched {
		logger.Info("command matched no slot",
			logging.String("command", cmd.String()),
			logging.String("base_version", resolved),
			logging.String(logging.FieldEventType, "command_no_match"),
		)
		return Result{Success: false, Document: loaded}, nil
	}

	v, err := e.chain.Commit(ctx, edited, projectID)
	if err != nil {
		return Result{}, err
	}
	logger.Info("command applied",
		logging.String("command", cmd.String()),
		logging.String("base_version", resolved),
		logging.Int64(logging.FieldVersionID, v.ID),
		logging.String(logging.FieldEventType, "command_applied"),
	)
	e.dispatch(ctx, logger, v)
	return Result{Success: true, Document: edited, Version: &v}, nil
}

// CreateProject starts a project from the template project, commits its
// first version and dispatches it.
func (e *Executor) CreateProject(ctx context.Context) (project.Version, error) {
	v, err := e.chain.CreateFromTemplate(ctx, e.templateID, e.templateID)
	if err != nil {
		return project.Version{}, err
	}
	ctx = services.WithProjectID(ctx, v.ProjectID)
	logger := logging.WithContext(ctx, e.logger)
	e.dispatch(ctx, logger, v)
	if e.notifier != nil {
		if err := e.notifier.Publish(ctx, notifications.EventProjectCreated, notifications.Payload{
			"projectId": v.ProjectID,
			"template":  e.templateID,
		}); err != nil {
			logger.Warn("project created notification failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "notification_failed"),
				logging.String(logging.FieldErrorHint, "check ntfy topic configuration"),
			)
		}
	}
	return v, nil
}

// dispatch failures are already dead-lettered and reported by the dispatcher;
// the committed version stands either way.
func (e *Executor) dispatch(ctx context.Context, logger *slog.Logger, v project.Version) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.Dispatch(ctx, v); err != nil {
		logging.WarnWithContext(logger, "render not dispatched", "render_dispatch_deferred",
			logging.Error(err),
			logging.Int64(logging.FieldVersionID, v.ID),
			logging.String(logging.FieldErrorHint, "the dispatch is retried from the dead-letter queue"),
			logging.String(logging.FieldImpact, "render status unchanged until the retry succeeds"),
		)
	}
}
