package audit

import (
	"time"
)

// Action identifies the kind of mutation being audited.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionUpsert     Action = "upsert"
	ActionCreateMany Action = "create_many"
	ActionUpdateMany Action = "update_many"
	ActionDeleteMany Action = "delete_many"
)

// Mutating reports whether the action writes data. Reads, counts and
// aggregations are not audited.
func (a Action) Mutating() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionUpsert,
		ActionCreateMany, ActionUpdateMany, ActionDeleteMany:
		return true
	}
	return false
}

// Args carries a mutation's filter and input payload as the data layer saw
// them.
type Args struct {
	Where map[string]any
	Data  map[string]any
}

// Mutation describes a write about to be performed against an entity.
type Mutation struct {
	Entity string
	Action Action
	Args   Args
}

// RequestContext holds ambient request metadata attached to audit entries.
// Every field is optional; a background job produces entries with none.
type RequestContext struct {
	ActorID   string
	RequestID string
	IP        string
	UserAgent string
}

// Job is the unit queued for persistence. It is immutable once built:
// retries carry the same snapshots and only the retry counter advances on
// the copy travelling through the queue.
type Job struct {
	Mutation Mutation
	Before   map[string]any
	After    map[string]any
	Request  RequestContext

	retry int
}

// Retries returns how many times this job has been re-enqueued after a
// persistence failure.
func (j Job) Retries() int {
	return j.retry
}

// UnknownEntityID is stored when no id can be extracted from a mutation.
const UnknownEntityID = "unknown"

// Entry is the durable audit record.
type Entry struct {
	ID               string    `json:"id"`
	Action           Action    `json:"action"`
	EntityType       string    `json:"entity_type"`
	EntityID         string    `json:"entity_id"`
	ActorUserID      string    `json:"actor_user_id,omitempty"`
	EventID          string    `json:"event_id,omitempty"`
	RequestID        string    `json:"request_id,omitempty"`
	IP               string    `json:"ip,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
	Before           any       `json:"before"`
	After            any       `json:"after"`
	RedactionApplied bool      `json:"redaction_applied"`
	CreatedAt        time.Time `json:"created_at"`
}
