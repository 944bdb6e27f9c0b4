package etl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
)

// State is the provisioning/load lifecycle position of a run.
type State int

const (
	NotProvisioned State = iota
	ContainerReady
	TableReady
	LoadSubmitted
	LoadComplete
	LoadFailed
)

func (s State) String() string {
	switch s {
	case NotProvisioned:
		return "NotProvisioned"
	case ContainerReady:
		return "ContainerReady"
	case TableReady:
		return "TableReady"
	case LoadSubmitted:
		return "LoadSubmitted"
	case LoadComplete:
		return "LoadComplete"
	case LoadFailed:
		return "LoadFailed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Action is what the orchestrator does with a provisioning outcome.
type Action string

const (
	ActionIgnore   Action = "ignore"
	ActionContinue Action = "continue"
	ActionAbort    Action = "abort"
)

// ProvisionPolicy declares how provisioning outcomes are handled.
// OnConflict applies to "already exists", OnError to every other failure.
type ProvisionPolicy struct {
	OnConflict Action `validate:"oneof=ignore continue abort"`
	OnError    Action `validate:"oneof=ignore continue abort"`
}

// DefaultPolicy ignores existing resources and keeps going after other
// provisioning failures.
func DefaultPolicy() ProvisionPolicy {
	return ProvisionPolicy{OnConflict: ActionIgnore, OnError: ActionContinue}
}

// ParseAction accepts ignore, continue or abort.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionIgnore, ActionContinue, ActionAbort:
		return a, nil
	default:
		return "", fmt.Errorf("unknown provisioning action %q (want ignore, continue or abort)", s)
	}
}

// Orchestrator provisions the destination and runs the load job.
type Orchestrator struct {
	Warehouse Warehouse
	Policy    ProvisionPolicy

	// OnTransition, when set, observes every state change.
	OnTransition func(s State, note string)

	state State
}

func NewOrchestrator(w Warehouse, policy ProvisionPolicy) *Orchestrator {
	if policy.OnConflict == "" {
		policy.OnConflict = ActionIgnore
	}
	if policy.OnError == "" {
		policy.OnError = ActionContinue
	}
	return &Orchestrator{Warehouse: w, Policy: policy}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) transition(s State, note string) {
	o.state = s
	if o.OnTransition != nil {
		o.OnTransition(s, note)
	}
}

// ProvisionContainer creates the dataset. An existing dataset is a no-op.
func (o *Orchestrator) ProvisionContainer(ctx context.Context, name, location string) (State, error) {
	err := o.Warehouse.CreateDataset(ctx, name, location)
	if err := o.applyPolicy(fmt.Sprintf("create dataset %s", name), err); err != nil {
		return o.state, err
	}
	o.transition(ContainerReady, name)
	return o.state, nil
}

// ProvisionTable creates the table with the given schema. An existing table is a no-op.
func (o *Orchestrator) ProvisionTable(ctx context.Context, table models.TableDescriptor) (State, error) {
	err := o.Warehouse.CreateTable(ctx, table)
	if err := o.applyPolicy(fmt.Sprintf("create table %s", table), err); err != nil {
		return o.state, err
	}
	o.transition(TableReady, table.String())
	return o.state, nil
}

func (o *Orchestrator) applyPolicy(op string, err error) error {
	log := logger.Named("orchestrator")
	switch {
	case err == nil:
		log.Info().Str("op", op).Msg("created")
		return nil
	case errors.Is(err, ErrAlreadyExists):
		if o.Policy.OnConflict == ActionAbort {
			return newError(KindProvisioningConflict, op, err)
		}
		log.Info().Str("op", op).Str("kind", string(KindProvisioningConflict)).Msg("already exists, reusing")
		return nil
	default:
		if o.Policy.OnError == ActionAbort {
			return newError(KindProvisioningError, op, err)
		}
		log.Error().Err(err).Str("op", op).Str("kind", string(KindProvisioningError)).Msg("provisioning failed, continuing")
		return nil
	}
}

// SubmitLoad validates and submits the load job. It is never retried here.
func (o *Orchestrator) SubmitLoad(ctx context.Context, spec models.LoadJobSpec) (JobHandle, error) {
	if err := ValidateLoadSpec(spec); err != nil {
		o.transition(LoadFailed, err.Error())
		return nil, newError(KindLoadJobFailed, "validate load", err)
	}
	h, err := o.Warehouse.SubmitLoad(ctx, spec)
	if err != nil {
		o.transition(LoadFailed, err.Error())
		return nil, newError(KindLoadJobFailed, "submit load", err)
	}
	logger.Named("orchestrator").Info().Str("job", h.ID()).Str("table", spec.Destination.String()).
		Str("disposition", string(spec.WriteDisposition)).Int64("max_bad_records", spec.MaxBadRecords).
		Bool("autodetect", spec.Autodetect).Msg("load submitted")
	o.transition(LoadSubmitted, h.ID())
	return h, nil
}

// Await blocks until the job finishes and reports LoadComplete or LoadFailed.
func (o *Orchestrator) Await(ctx context.Context, h JobHandle) (models.LoadResult, error) {
	res, err := h.Wait(ctx)
	if err != nil {
		o.transition(LoadFailed, err.Error())
		return res, newError(KindLoadJobFailed, fmt.Sprintf("job %s", h.ID()), err)
	}
	logger.Named("orchestrator").Info().Str("job", h.ID()).Int64("rows", res.OutputRows).
		Int64("bad_records", res.BadRecords).Msg("load complete")
	o.transition(LoadComplete, h.ID())
	return res, nil
}

// ProvisionAndLoad runs container, table and load in order.
func (o *Orchestrator) ProvisionAndLoad(ctx context.Context, spec models.LoadJobSpec) (models.LoadResult, error) {
	dst := spec.Destination
	if _, err := o.ProvisionContainer(ctx, dst.Dataset, dst.Location); err != nil {
		return models.LoadResult{}, err
	}
	if _, err := o.ProvisionTable(ctx, dst); err != nil {
		return models.LoadResult{}, err
	}
	h, err := o.SubmitLoad(ctx, spec)
	if err != nil {
		return models.LoadResult{}, err
	}
	return o.Await(ctx, h)
}
