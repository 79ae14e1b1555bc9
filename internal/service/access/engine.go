package access

import (
	"context"
	"time"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
	"github.com/clinicore/phi-gate/internal/service/audit"
	"github.com/clinicore/phi-gate/internal/service/consent"
	"github.com/clinicore/phi-gate/pkg/logger"
	"github.com/clinicore/phi-gate/pkg/metrics"
)

// failSecureReason is the only reason ever returned for an internal
// failure; it deliberately says nothing about what broke.
const failSecureReason = "Access control system error"

// stage evaluates one policy layer. Returning nil means the request
// passes this layer and evaluation continues; a non-nil decision stops
// the pipeline immediately, for denial or (emergency only) grant.
type stage struct {
	name string
	eval func(ctx context.Context, ec *evalContext) (*model.AccessDecision, error)
}

// evalContext carries the request through the pipeline; provisional
// restrictions accumulate and finalize folds them into the grant.
type evalContext struct {
	req          *model.AccessRequest
	restrictions []string
}

func (ec *evalContext) restrict(tags ...string) {
	ec.restrictions = append(ec.restrictions, tags...)
}

// Engine is the layered authorization gate in front of all PHI access
type Engine struct {
	consents      *consent.Service
	relationships repository.RelationshipRepository
	auditor       *audit.Service
	log           *logger.Logger
	metrics       *metrics.Metrics
	stages        []stage
}

func NewEngine(consents *consent.Service, relationships repository.RelationshipRepository,
	auditor *audit.Service, log *logger.Logger, m *metrics.Metrics) *Engine {
	e := &Engine{
		consents:      consents,
		relationships: relationships,
		auditor:       auditor,
		log:           log.WithComponent("access"),
		metrics:       m,
	}
	e.stages = []stage{
		{name: "emergency", eval: e.emergencyStage},
		{name: "role_policy", eval: e.rolePolicyStage},
		{name: "relationship", eval: e.relationshipStage},
		{name: "consent", eval: e.consentStage},
		{name: "minimum_necessary", eval: e.minimumNecessaryStage},
	}
	return e
}

// CheckAccess evaluates the request through every stage in order and
// stops at the first decision. It never returns an error and never
// panics outward: any internal failure converts into a deny.
func (e *Engine) CheckAccess(ctx context.Context, req *model.AccessRequest) (decision *model.AccessDecision) {
	started := time.Now()
	deciding := "finalize"

	defer func() {
		if r := recover(); r != nil {
			e.log.Error(nil, "access pipeline panic", map[string]interface{}{"panic": r})
			decision = model.Deny(failSecureReason)
			deciding = "fail_secure"
		}
		e.observe(decision, deciding, started)
	}()

	ec := &evalContext{req: req}

	for _, st := range e.stages {
		d, err := st.eval(ctx, ec)
		if err != nil {
			e.log.Error(err, "access stage failed", map[string]interface{}{"stage": st.name})
			deciding = "fail_secure"
			return model.Deny(failSecureReason)
		}
		if d != nil {
			deciding = st.name
			return d
		}
	}

	return e.finalize(ec)
}

func (e *Engine) observe(decision *model.AccessDecision, stage string, started time.Time) {
	if e.metrics == nil || decision == nil {
		return
	}
	outcome := "denied"
	if decision.Allowed {
		outcome = "allowed"
	}
	e.metrics.AccessDecisions.WithLabelValues(outcome, stage).Inc()
	e.metrics.DecisionLatency.Observe(time.Since(started).Seconds())
}

// finalize grants. The access level comes from the role and operation
// matrices; the baseline minimum-necessary and audit tags always ride
// along with whatever role-specific tags earlier stages attached.
func (e *Engine) finalize(ec *evalContext) *model.AccessDecision {
	ec.restrict(model.RestrictionMinimumNecessary, model.RestrictionAuditRequired)

	return &model.AccessDecision{
		Allowed:       true,
		AccessLevel:   levelFor(ec.req),
		Restrictions:  dedupe(ec.restrictions),
		Reason:        "access granted",
		AuditRequired: true,
	}
}

// levelFor is the role x operation access matrix. Self-access never
// yields FULL regardless of role.
func levelFor(req *model.AccessRequest) model.AccessLevel {
	if req.SelfAccess() {
		if req.Operation == model.OperationRead {
			return model.AccessLevelRead
		}
		return model.AccessLevelWrite
	}

	switch req.RequesterRole {
	case model.RoleAdmin:
		return model.AccessLevelFull
	case model.RoleDoctor:
		if req.Operation == model.OperationRead {
			return model.AccessLevelFull
		}
		return model.AccessLevelWrite
	case model.RoleNurse:
		if req.Operation == model.OperationRead {
			return model.AccessLevelRead
		}
		return model.AccessLevelWrite
	case model.RoleLabTechnician:
		return model.AccessLevelRead
	case model.RoleCashier:
		return model.AccessLevelRead
	default:
		return model.AccessLevelNone
	}
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
